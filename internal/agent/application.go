package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ziadkadry99/echo-agent/internal/activity"
	"github.com/ziadkadry99/echo-agent/internal/storage"
)

// Application dispatches each activity to the first route that matches it.
// The route table is fixed at construction.
type Application struct {
	routes  []Route
	storage storage.Storage
}

// New creates an Application over routes, evaluated in order. Turn state is
// kept in store; a nil store gives every turn fresh state.
func New(store storage.Storage, routes []Route) *Application {
	return &Application{
		routes:  append([]Route(nil), routes...),
		storage: store,
	}
}

// Routes returns the names of the registered routes in evaluation order.
func (app *Application) Routes() []string {
	names := make([]string, len(app.routes))
	for i, r := range app.routes {
		names[i] = r.Name
	}
	return names
}

// OnTurn handles one inbound activity. Activities no route matches are
// ignored. Handler and send errors are returned unchanged.
func (app *Application) OnTurn(ctx context.Context, tc *TurnContext) error {
	a := tc.Activity()

	route, ok := app.match(a)
	if !ok {
		log.Debug().
			Str("type", a.Type).
			Str("conversation", a.Conversation.ID).
			Msg("no route matched activity")
		return nil
	}

	state, err := app.loadState(ctx, a)
	if err != nil {
		return err
	}

	log.Debug().
		Str("route", route.Name).
		Str("type", a.Type).
		Str("conversation", a.Conversation.ID).
		Msg("dispatching activity")

	if err := route.Handler(ctx, tc, state); err != nil {
		return err
	}

	return app.saveState(ctx, a, state)
}

func (app *Application) match(a *activity.Activity) (Route, bool) {
	for _, r := range app.routes {
		if r.Selector(a) {
			return r, true
		}
	}
	return Route{}, false
}

func (app *Application) loadState(ctx context.Context, a *activity.Activity) (*TurnState, error) {
	state := &TurnState{}
	if app.storage == nil {
		return state, nil
	}

	data, err := app.storage.Read(ctx, a.ConversationKey())
	if errors.Is(err, storage.ErrNotFound) {
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading turn state: %w", err)
	}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("decoding turn state: %w", err)
	}
	return state, nil
}

func (app *Application) saveState(ctx context.Context, a *activity.Activity, state *TurnState) error {
	if app.storage == nil {
		return nil
	}

	key := a.ConversationKey()
	if state.deleted {
		if err := app.storage.Delete(ctx, key); err != nil {
			return fmt.Errorf("deleting turn state: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding turn state: %w", err)
	}
	if err := app.storage.Write(ctx, key, data); err != nil {
		return fmt.Errorf("saving turn state: %w", err)
	}
	return nil
}
