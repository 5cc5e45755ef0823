package cart

import (
	"context"
)

// Session is one shopper's cart bound to its store. It loads once and saves
// after every mutation; the in-memory state only advances when the save
// succeeds.
type Session struct {
	id    string
	store Store
	state State
}

func OpenSession(ctx context.Context, store Store, id string) (*Session, error) {
	state, err := store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Session{id: id, store: store, state: state}, nil
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) Add(ctx context.Context, item Item, quantity int) error {
	return s.apply(ctx, s.state.AddItem(item, quantity))
}

func (s *Session) UpdateQuantity(ctx context.Context, id uint, quantity int) error {
	return s.apply(ctx, s.state.UpdateQuantity(id, quantity))
}

func (s *Session) Refresh(ctx context.Context, item Item) error {
	return s.apply(ctx, s.state.Refresh(item))
}

func (s *Session) Remove(ctx context.Context, id uint) error {
	return s.apply(ctx, s.state.RemoveItem(id))
}

// Clear empties the cart and drops its stored row.
func (s *Session) Clear(ctx context.Context) error {
	if err := s.store.Delete(ctx, s.id); err != nil {
		return err
	}
	s.state = s.state.Clear()
	return nil
}

func (s *Session) apply(ctx context.Context, next State) error {
	if err := s.store.Save(ctx, s.id, next); err != nil {
		return err
	}
	s.state = next
	return nil
}
