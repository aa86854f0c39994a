package rules

import "fmt"

// Rules bundles the three threshold sets of a run.
type Rules struct {
	// Reproduce holds the neighbor counts that bring a dead cell to life.
	Reproduce Thresholds
	// Survive holds the neighbor counts that keep a live cell alive.
	Survive Thresholds
	// Dying is not a neighbor test: it is the menu of countdown lengths a
	// cell draws from when it starts dying.
	Dying Thresholds
}

// Parse builds Rules from the three textual threshold lists.
func Parse(reproduce, survive, dying string) (Rules, error) {
	var r Rules
	var err error
	if r.Reproduce, err = ParseThresholds(reproduce); err != nil {
		return Rules{}, fmt.Errorf("reproduce thresholds: %w", err)
	}
	if r.Survive, err = ParseThresholds(survive); err != nil {
		return Rules{}, fmt.Errorf("survive thresholds: %w", err)
	}
	if r.Dying, err = ParseThresholds(dying); err != nil {
		return Rules{}, fmt.Errorf("dying thresholds: %w", err)
	}
	return r, nil
}

// Missing returns the names of the empty sets, in declaration order.
func (r Rules) Missing() []string {
	var names []string
	if r.Reproduce.Empty() {
		names = append(names, "reproduce")
	}
	if r.Survive.Empty() {
		names = append(names, "survive")
	}
	if r.Dying.Empty() {
		names = append(names, "dying")
	}
	return names
}

func (r Rules) String() string {
	return fmt.Sprintf("R%s/S%s/D%s", r.Reproduce, r.Survive, r.Dying)
}
