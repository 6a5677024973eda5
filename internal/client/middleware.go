package client

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// DispatchFunc hands an action to the next stage of the chain.
type DispatchFunc func(Action)

// Middleware intercepts actions on their way to the reducer.
type Middleware func(s *Store) func(next DispatchFunc) DispatchFunc

// APIMiddleware turns request actions into HTTP calls. Actions Describe does
// not know are passed to next untouched. Every other action results in
// exactly one adapter call, or in an immediate failure action when its
// payload is invalid, and is not passed on: its success or failure outcome
// is dispatched in its place.
func APIMiddleware(adapter Adapter, logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(s *Store) func(DispatchFunc) DispatchFunc {
		return func(next DispatchFunc) DispatchFunc {
			return func(a Action) {
				d, err := Describe(a)
				if d == nil && err == nil {
					next(a)
					return
				}

				fail := func(status string, err error) {
					msg := fmt.Sprintf("%s: %v", status, err)
					logger.Error("request failed", "action", a.Type, "error", msg)
					s.Dispatch(Action{Type: d.FailureType, Payload: msg, Error: true})
				}

				if err != nil {
					fail("invalid", err)
					return
				}

				header := make(http.Header)
				if u := s.GetState().User; u != nil && u.Token != "" {
					header.Set("Authorization", "Bearer "+u.Token)
				}

				adapter.Do(Request{
					URL:         d.URL,
					Method:      d.Method,
					Data:        d.Data,
					ContentType: d.ContentType,
					FileUpload:  d.FileUpload,
					Header:      header,
					Success: func(body json.RawMessage) {
						s.Dispatch(Action{Type: d.SuccessType, Payload: body})
					},
					Error: fail,
				})
			}
		}
	}
}

// ObserveActions calls fn with every action after the rest of the chain has
// handled it.
func ObserveActions(fn func(Action)) Middleware {
	return func(*Store) func(DispatchFunc) DispatchFunc {
		return func(next DispatchFunc) DispatchFunc {
			return func(a Action) {
				next(a)
				fn(a)
			}
		}
	}
}
