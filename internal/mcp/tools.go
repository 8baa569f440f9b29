package mcp

import "github.com/mark3labs/mcp-go/mcp"

var itemsToolDef = mcp.NewTool("scale_items",
	mcp.WithDescription("List the 15 NIHSS items in display order with their score options, and the severity bands."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var scoreToolDef = mcp.NewTool("scale_score",
	mcp.WithDescription("Compute the total score and severity band for a (possibly partial) set of selections without saving."),
	mcp.WithObject("items",
		mcp.Required(),
		mcp.Description("Map of item id to chosen score, e.g. {\"loc\": 1, \"motorArmLeft\": 2}. Unscored items are omitted."),
	),
	mcp.WithReadOnlyHintAnnotation(true),
)

var saveToolDef = mcp.NewTool("assessment_save",
	mcp.WithDescription("Save an assessment to history. Total and severity are computed from items; the record is prepended (newest first)."),
	mcp.WithObject("items",
		mcp.Required(),
		mcp.Description("Map of item id to chosen score. May be partial."),
	),
	mcp.WithString("notes",
		mcp.Description("Free-text notes. Trimmed; omitted when blank."),
	),
	mcp.WithBoolean("force",
		mcp.Description("Save even when require_complete is configured and items are missing."),
	),
)

var listToolDef = mcp.NewTool("assessment_list",
	mcp.WithDescription("List saved assessments, newest first, with summary counts per severity."),
	mcp.WithString("severity",
		mcp.Description("Only return assessments in this band."),
		mcp.Enum("minor", "mild", "moderate", "severe"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of assessments to return (0 = all)."),
	),
	mcp.WithReadOnlyHintAnnotation(true),
)

var getToolDef = mcp.NewTool("assessment_get",
	mcp.WithDescription("Fetch one saved assessment by id with a per-item breakdown."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Assessment id."),
	),
	mcp.WithReadOnlyHintAnnotation(true),
)

var deleteToolDef = mcp.NewTool("assessment_delete",
	mcp.WithDescription("Delete a saved assessment by id. Deleting an unknown id is a no-op."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Assessment id."),
	),
	mcp.WithDestructiveHintAnnotation(true),
)

var clearToolDef = mcp.NewTool("assessment_clear",
	mcp.WithDescription("Delete all saved assessments. The device id is kept."),
	mcp.WithBoolean("confirm",
		mcp.Required(),
		mcp.Description("Must be true."),
	),
	mcp.WithDestructiveHintAnnotation(true),
)

var exportToolDef = mcp.NewTool("assessment_export",
	mcp.WithDescription("Write all saved assessments as a pretty-printed JSON array to a .json file in ~/.nihss/exports or an allowed path."),
	mcp.WithString("path",
		mcp.Description("Destination file. Defaults to a timestamped file in the exports directory."),
	),
)

var importToolDef = mcp.NewTool("assessment_import",
	mcp.WithDescription("Merge assessments from a JSON export file. Records whose id already exists are skipped."),
	mcp.WithString("path",
		mcp.Required(),
		mcp.Description("Source .json file."),
	),
)

var deviceIDToolDef = mcp.NewTool("device_id",
	mcp.WithDescription("Return the installation's device identifier, generating it on first use."),
)
