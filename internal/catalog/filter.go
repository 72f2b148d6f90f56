package catalog

import (
	"github.com/pbaille/ace/internal/domain"
	"github.com/pbaille/ace/internal/progress"
)

// Kind selects which filter a Selection applies.
type Kind string

const (
	KindGroup      Kind = "group"
	KindCategory   Kind = "category"
	KindReinforced Kind = "reinforced"
	KindMissed     Kind = "missed"
)

// Selection describes a catalog view.
type Selection struct {
	Kind     Kind
	GroupID  string
	Category string
}

// ByGroup selects the words of a group in the group's order.
func ByGroup(id string) Selection { return Selection{Kind: KindGroup, GroupID: id} }

// ByCategory selects words tagged with a category display name or tag.
func ByCategory(name string) Selection { return Selection{Kind: KindCategory, Category: name} }

// BySet selects words in a progress set, in catalog order.
func BySet(set progress.Set) Selection {
	if set == progress.Missed {
		return Selection{Kind: KindMissed}
	}
	return Selection{Kind: KindReinforced}
}

// SetLister reads progress sets.
type SetLister interface {
	List(set progress.Set) []string
}

// categoryTags maps category display names to word tags.
var categoryTags = map[string]string{
	"大学英语四级": "CET-4",
	"大学英语六级": "CET-6",
	"专四":     "TEM-4",
	"专八":     "TEM-8",
	"雅思":     "IELTS",
	"商务英语":   "Business",
	"金融":     "Finance",
	"科技":     "Tech",
	"文化":     "Culture",
	"社交":     "Social",
}

// CategoryTag resolves a display name to its tag. Unmapped names are
// returned unchanged so they can match tags directly.
func CategoryTag(name string) string {
	if tag, ok := categoryTags[name]; ok {
		return tag
	}
	return name
}

// Filter returns the words matching sel as a fresh slice. Unknown groups
// and categories give an empty result. sets may be nil when sel is not a
// progress-set selection.
func (c *Catalog) Filter(sel Selection, sets SetLister) []domain.Word {
	switch sel.Kind {
	case KindGroup:
		return c.groupWords(sel.GroupID)
	case KindCategory:
		return c.categoryWords(sel.Category)
	case KindReinforced:
		return c.setWords(sets, progress.Reinforced)
	case KindMissed:
		return c.setWords(sets, progress.Missed)
	}
	return []domain.Word{}
}

func (c *Catalog) groupWords(id string) []domain.Word {
	out := []domain.Word{}
	g, err := c.Group(id)
	if err != nil {
		return out
	}
	seen := make(map[string]bool, len(g.Words))
	for _, wid := range g.Words {
		if seen[wid] {
			continue
		}
		seen[wid] = true
		if w, err := c.Word(wid); err == nil {
			out = append(out, w)
		}
	}
	return out
}

func (c *Catalog) categoryWords(name string) []domain.Word {
	out := []domain.Word{}
	if name == "" {
		return out
	}
	tag := CategoryTag(name)
	for _, w := range c.Words {
		if w.HasCategory(tag) || w.HasCategory(name) {
			out = append(out, w)
		}
	}
	return out
}

func (c *Catalog) setWords(sets SetLister, set progress.Set) []domain.Word {
	out := []domain.Word{}
	if sets == nil {
		return out
	}
	ids := sets.List(set)
	member := make(map[string]bool, len(ids))
	for _, id := range ids {
		member[id] = true
	}
	for _, w := range c.Words {
		if member[w.ID] {
			out = append(out, w)
		}
	}
	return out
}
