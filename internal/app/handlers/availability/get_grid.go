package availability

import (
	"context"
	"errors"
	"time"

	"campcal/internal/app/dto"
	"campcal/internal/app/policies"
	"campcal/internal/app/queries"
	domainavailability "campcal/internal/domain/availability"
	"campcal/internal/domain/drag"
	"campcal/internal/domain/grid"
	"campcal/internal/domain/render"
)

const getGridKey = "availability.grid"

var ErrInventoryMissing = errors.New("availability: inventory source not configured")

// GetGridQuery asks for the painted board of one window, including the
// caller's stored selection and in-flight drag.
type GetGridQuery struct {
	CampgroundID string
	Window       grid.Window
	Today        time.Time
	Selection    *render.Selection
	Drag         *drag.Snapshot
}

func (q GetGridQuery) Key() string { return getGridKey }

type GetGridHandler struct {
	Inventory policies.InventoryPort
}

func (h *GetGridHandler) Handle(ctx context.Context, q GetGridQuery) (dto.Grid, error) {
	if h.Inventory == nil {
		return dto.Grid{}, ErrInventoryMissing
	}
	inv, err := h.Inventory.Inventory(ctx, q.CampgroundID, q.Window.Range())
	if err != nil {
		return dto.Grid{}, err
	}

	conflicts := domainavailability.DetectConflicts(inv.Reservations, q.Window.Range())
	items := render.Project(render.Input{
		Window:    q.Window,
		Inventory: inv,
		Selection: q.Selection,
		Drag:      q.Drag,
		Conflicts: conflicts,
	})

	today := q.Today
	if today.IsZero() {
		today = time.Now()
	}
	return dto.Grid{
		CampgroundID: q.CampgroundID,
		Start:        q.Window.Range().ArrivalKey(),
		DayCount:     q.Window.DayCount,
		Days:         dto.MapDays(q.Window.Days(today)),
		Sites:        dto.MapSites(inv.Sites),
		Items:        dto.MapItems(items),
		Conflicts:    dto.MapConflicts(conflicts),
	}, nil
}

func Register(bus *queries.InMemoryBus, h *GetGridHandler) {
	queries.RegisterHandler[GetGridQuery, dto.Grid](bus, getGridKey, h)
}

var _ queries.Handler[GetGridQuery, dto.Grid] = (*GetGridHandler)(nil)
