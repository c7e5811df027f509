package ui

// VisibilityState is the window's place in the visible/tray-only state
// machine. The close button hides to tray; only the tray menu exits.
type VisibilityState int

const (
	StateVisible VisibilityState = iota
	StateHidden
)

type VisibilityEvent int

const (
	EventCloseRequested VisibilityEvent = iota
	EventTrayShow
	EventTrayExit
)

// Visibility drives the window-visibility transitions. The callbacks do
// the actual showing/hiding/terminating so the machine stays testable.
type Visibility struct {
	state  VisibilityState
	onShow func()
	onHide func()
	onExit func()
}

func NewVisibility(onShow, onHide, onExit func()) *Visibility {
	return &Visibility{state: StateVisible, onShow: onShow, onHide: onHide, onExit: onExit}
}

func (v *Visibility) State() VisibilityState { return v.state }

func (v *Visibility) Handle(e VisibilityEvent) {
	switch e {
	case EventCloseRequested:
		if v.state == StateVisible {
			v.state = StateHidden
			if v.onHide != nil {
				v.onHide()
			}
		}
	case EventTrayShow:
		if v.state == StateHidden {
			v.state = StateVisible
			if v.onShow != nil {
				v.onShow()
			}
		}
	case EventTrayExit:
		if v.onExit != nil {
			v.onExit()
		}
	}
}
