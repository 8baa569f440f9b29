// Package scale holds the NIH Stroke Scale item catalog and the pure scoring
// model built on it: totals, severity bands, selection validation, and the
// assessment record produced when a scoring session is saved.
package scale

import "slices"

// Option is one selectable score for an item.
type Option struct {
	Value       int    `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// Item is one entry of the fixed checklist.
type Item struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	MaxScore    int      `json:"maxScore"`
	Options     []Option `json:"options"`
}

// Option returns the option with the given value.
func (it Item) Option(value int) (Option, bool) {
	for _, o := range it.Options {
		if o.Value == value {
			return o, true
		}
	}
	return Option{}, false
}

// Values returns the allowed option values in catalog order.
func (it Item) Values() []int {
	values := make([]int, len(it.Options))
	for i, o := range it.Options {
		values[i] = o.Value
	}
	return values
}

var catalog = []Item{
	{
		ID:          "loc",
		Name:        "Level of Consciousness",
		Description: "Assess level of alertness",
		MaxScore:    3,
		Options: []Option{
			{Value: 0, Label: "Alert", Description: "Fully alert and responsive"},
			{Value: 1, Label: "Drowsy", Description: "Not alert, but arousable with minor stimulation"},
			{Value: 2, Label: "Stuporous", Description: "Not alert, requires repeated stimulation"},
			{Value: 3, Label: "Coma", Description: "Unresponsive or responds only with reflex"},
		},
	},
	{
		ID:          "locQuestions",
		Name:        "LOC Questions",
		Description: "Ask month and age. Score 0-2",
		MaxScore:    2,
		Options: []Option{
			{Value: 0, Label: "Answers both correctly"},
			{Value: 1, Label: "Answers one correctly"},
			{Value: 2, Label: "Answers neither correctly"},
		},
	},
	{
		ID:          "locCommands",
		Name:        "LOC Commands",
		Description: "Open/close eyes, grip/non-grip hand. Score 0-2",
		MaxScore:    2,
		Options: []Option{
			{Value: 0, Label: "Performs both tasks correctly"},
			{Value: 1, Label: "Performs one task correctly"},
			{Value: 2, Label: "Performs neither correctly"},
		},
	},
	{
		ID:          "gaze",
		Name:        "Best Gaze",
		Description: "Test horizontal eye movements",
		MaxScore:    2,
		Options: []Option{
			{Value: 0, Label: "Normal", Description: "Eyes move normally"},
			{Value: 1, Label: "Partial gaze palsy", Description: "Gaze abnormal in one or both eyes"},
			{Value: 2, Label: "Forced deviation", Description: "Gaze fixed in one direction"},
		},
	},
	{
		ID:          "visual",
		Name:        "Best Visual",
		Description: "Test visual fields",
		MaxScore:    3,
		Options: []Option{
			{Value: 0, Label: "No visual loss"},
			{Value: 1, Label: "Partial hemianopia", Description: "Visual field deficit in one quadrant"},
			{Value: 2, Label: "Complete hemianopia", Description: "Visual field deficit in half of visual field"},
			{Value: 3, Label: "Bilateral hemianopia", Description: "Blind or bilateral visual loss"},
		},
	},
	{
		ID:          "facial",
		Name:        "Facial Palsy",
		Description: "Test facial symmetry",
		MaxScore:    3,
		Options: []Option{
			{Value: 0, Label: "Normal", Description: "Symmetric movements"},
			{Value: 1, Label: "Minor", Description: "Minor paralysis (flattened nasolabial fold)"},
			{Value: 2, Label: "Partial", Description: "Partial paralysis (total or near-total)"},
			{Value: 3, Label: "Complete", Description: "Complete paralysis of one or both sides"},
		},
	},
	{
		ID:          "motorArmLeft",
		Name:        "Motor Arm - Left",
		Description: "Test left arm strength (extend arms 90°, drift)",
		MaxScore:    4,
		Options: []Option{
			{Value: 0, Label: "No drift", Description: "Holds 90° (or 45° supine) for full 10 seconds"},
			{Value: 1, Label: "Drift", Description: "Drifts but does not hit bed"},
			{Value: 2, Label: "Some effort", Description: "Some effort against gravity, limb cannot get to position"},
			{Value: 3, Label: "No effort", Description: "No effort against gravity"},
			{Value: 4, Label: "No movement", Description: "No movement"},
		},
	},
	{
		ID:          "motorArmRight",
		Name:        "Motor Arm - Right",
		Description: "Test right arm strength (extend arms 90°, drift)",
		MaxScore:    4,
		Options: []Option{
			{Value: 0, Label: "No drift"},
			{Value: 1, Label: "Drift"},
			{Value: 2, Label: "Some effort"},
			{Value: 3, Label: "No effort"},
			{Value: 4, Label: "No movement"},
		},
	},
	{
		ID:          "motorLegLeft",
		Name:        "Motor Leg - Left",
		Description: "Test left leg strength (extend leg 30°, drift)",
		MaxScore:    4,
		Options: []Option{
			{Value: 0, Label: "No drift", Description: "Holds 30° for full 5 seconds"},
			{Value: 1, Label: "Drift", Description: "Drifts but does not hit bed"},
			{Value: 2, Label: "Some effort", Description: "Some effort against gravity"},
			{Value: 3, Label: "No effort", Description: "No effort against gravity"},
			{Value: 4, Label: "No movement", Description: "No movement"},
		},
	},
	{
		ID:          "motorLegRight",
		Name:        "Motor Leg - Right",
		Description: "Test right leg strength (extend leg 30°, drift)",
		MaxScore:    4,
		Options: []Option{
			{Value: 0, Label: "No drift"},
			{Value: 1, Label: "Drift"},
			{Value: 2, Label: "Some effort"},
			{Value: 3, Label: "No effort"},
			{Value: 4, Label: "No movement"},
		},
	},
	{
		ID:          "ataxia",
		Name:        "Limb Ataxia",
		Description: "Finger-nose and heel-shin test",
		MaxScore:    2,
		Options: []Option{
			{Value: 0, Label: "Absent", Description: "No ataxia or amputee/paralyzed"},
			{Value: 1, Label: "Present in one limb"},
			{Value: 2, Label: "Present in two limbs"},
		},
	},
	{
		ID:          "sensory",
		Name:        "Sensory",
		Description: "Test pinprick or pin-touch",
		MaxScore:    2,
		Options: []Option{
			{Value: 0, Label: "Normal", Description: "Normal sensation"},
			{Value: 1, Label: "Partial loss", Description: "Mild-to-moderate sensory loss"},
			{Value: 2, Label: "Dense loss", Description: "Total or near-total sensory loss"},
		},
	},
	{
		ID:          "language",
		Name:        "Best Language",
		Description: "Naming, spontaneous speech, comprehension",
		MaxScore:    3,
		Options: []Option{
			{Value: 0, Label: "No aphasia", Description: "Normal fluency and comprehension"},
			{Value: 1, Label: "Mild-to-moderate", Description: "Some obvious loss of fluency"},
			{Value: 2, Label: "Severe", Description: "Fragmentary expression, needs inference"},
			{Value: 3, Label: "Mute/Global", Description: "No usable speech or comprehension"},
		},
	},
	{
		ID:          "dysarthria",
		Name:        "Dysarthria",
		Description: "Test speech clarity (read/listen to words)",
		MaxScore:    2,
		Options: []Option{
			{Value: 0, Label: "Normal", Description: "Normal articulation"},
			{Value: 1, Label: "Mild-to-moderate", Description: "Slurring but can be understood"},
			{Value: 2, Label: "Severe", Description: "Speech so slurred as to be unintelligible"},
		},
	},
	{
		ID:          "extinction",
		Name:        "Extinction & Inattention",
		Description: "Visual, tactile, auditory, spatial",
		MaxScore:    2,
		Options: []Option{
			{Value: 0, Label: "No abnormality", Description: "No neglect in any modality"},
			{Value: 1, Label: "Inattention", Description: "Inattention or extinction to bilateral simultaneous stimulation"},
			{Value: 2, Label: "Profound hemi-inattention", Description: "Profound hemi-inattention or extinction"},
		},
	},
}

// catalogIndex maps item id to its position in catalog.
var catalogIndex = func() map[string]int {
	idx := make(map[string]int, len(catalog))
	for i, it := range catalog {
		idx[it.ID] = i
	}
	return idx
}()

// Items returns the catalog in display order.
// The returned slice is a copy; callers may not mutate the catalog through it.
func Items() []Item {
	out := make([]Item, len(catalog))
	for i, it := range catalog {
		it.Options = slices.Clone(it.Options)
		out[i] = it
	}
	return out
}

// ItemByID looks up a catalog item.
func ItemByID(id string) (Item, bool) {
	i, ok := catalogIndex[id]
	if !ok {
		return Item{}, false
	}
	it := catalog[i]
	it.Options = slices.Clone(it.Options)
	return it, true
}

// ItemIDs returns every item id in catalog order.
func ItemIDs() []string {
	ids := make([]string, len(catalog))
	for i, it := range catalog {
		ids[i] = it.ID
	}
	return ids
}

// MaxTotal is the sum of every item's maximum score.
func MaxTotal() int {
	total := 0
	for _, it := range catalog {
		total += it.MaxScore
	}
	return total
}
