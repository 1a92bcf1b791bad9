package domain

// View identifies the generation mode that produced a task. It is a filter
// key only and never changes how a task is scheduled.
type View string

// Known views
const (
	ViewCreate     View = "create"
	ViewModel      View = "model"
	ViewTryOn      View = "try-on"
	ViewPosture    View = "posture"
	ViewBackground View = "background"
	ViewFusion     View = "fusion"
)

// Views lists every view in navigation order.
var Views = []View{
	ViewCreate,
	ViewModel,
	ViewTryOn,
	ViewPosture,
	ViewBackground,
	ViewFusion,
}

// Valid reports whether v is a known view.
func (v View) Valid() bool {
	for _, known := range Views {
		if v == known {
			return true
		}
	}
	return false
}

// ParseView converts s into a View, returning ErrInvalidView for unknown tags.
func ParseView(s string) (View, error) {
	v := View(s)
	if !v.Valid() {
		return "", ErrInvalidView
	}
	return v, nil
}
