package session

import (
	"context"

	"github.com/aanand-mishra/mentor-mentee/internal/types"
)

// View is what a page template needs: the state plus data read fresh from
// the store for this render.
type View struct {
	State
	Roles    []types.Role
	Feedback []types.Feedback
}

// View assembles the render model for st. It reads but never writes.
func (m *Machine) View(ctx context.Context, st State) (View, error) {
	v := View{State: st, Roles: types.Roles}

	if st.LoggedIn && st.Page == PageStudent {
		feedback, err := m.svc.FeedbackFor(ctx, st.Username)
		if err != nil {
			return View{}, err
		}
		v.Feedback = feedback
	}
	return v, nil
}
