package reservations

import "campcal/internal/app/commands"

type Handlers struct {
	Move  *MoveReservationHandler
	Hold  *CreateHoldHandler
	Split *SplitReservationHandler
}

func (h Handlers) Register(bus *commands.InMemoryBus) {
	if h.Move != nil {
		commands.RegisterHandler[MoveReservationCommand, *MoveReservationResult](bus, moveReservationKey, h.Move)
	}
	if h.Hold != nil {
		commands.RegisterHandler[CreateHoldCommand, *CreateHoldResult](bus, createHoldKey, h.Hold)
	}
	if h.Split != nil {
		commands.RegisterHandler[SplitReservationCommand, *SplitReservationResult](bus, splitReservationKey, h.Split)
	}
}
