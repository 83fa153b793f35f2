// Package visibility answers whether any day file is on screen.
package visibility

import (
	"github.com/starford/tempo/internal/classify"
	"github.com/starford/tempo/internal/preview"
	"github.com/starford/tempo/internal/views"
)

// Aggregator combines the window registry with the classifier.
type Aggregator struct {
	views *views.Registry
}

// New creates an Aggregator over registry.
func New(registry *views.Registry) *Aggregator {
	return &Aggregator{views: registry}
}

// AnyTrackedVisible reports whether some window shows a day file under root.
// The preview is excluded by name before classification.
func (a *Aggregator) AnyTrackedVisible(root string) (bool, error) {
	pairs, err := a.views.Pairs()
	if err != nil {
		return false, err
	}
	for _, p := range pairs {
		if preview.IsPreviewName(p.Name) {
			continue
		}
		if classify.Classify(p.Name, root) {
			return true, nil
		}
	}
	return false, nil
}
