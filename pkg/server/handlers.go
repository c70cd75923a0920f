package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	tagview "tagview/engine/core"
	"tagview/engine/pubsub"
	"tagview/pkg/client"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, tagview.ErrUnknownElement), errors.Is(err, tagview.ErrUnknownTag):
		return http.StatusNotFound
	case errors.Is(err, tagview.ErrWidgetDisabled), errors.Is(err, tagview.ErrInvalidWidgetKind):
		return http.StatusConflict
	case errors.Is(err, tagview.ErrInvalidDisplayValue):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errLoopStopped), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// fail logs the failed operation and writes err with its mapped status.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, resource string, err error) {
	status := statusFor(err)
	s.LogAPIOperation(r.Method, r.URL.Path, resource, "error", status, err.Error(), "")
	http.Error(w, err.Error(), status)
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	health := client.HealthResponse{
		Status:  "healthy",
		Server:  "tagview",
		Version: version,
		Device:  s.config.DeviceURL,
	}
	if err := s.loop.do(r.Context(), func() {
		health.Elements = s.reconciler.Tree().Len()
		health.LastSnapshot = s.lastSnapshot
	}); err != nil {
		health.Status = "stopped"
		writeJSON(w, http.StatusServiceUnavailable, health)
		return
	}
	writeJSON(w, http.StatusOK, health)
}

func (s *Server) listElements(w http.ResponseWriter, r *http.Request) {
	var view []tagview.ElementView
	if err := s.loop.do(r.Context(), func() { view = s.reconciler.Tree().View() }); err != nil {
		s.fail(w, r, "", err)
		return
	}
	writeJSON(w, http.StatusOK, client.ElementListResponse{Elements: view, Count: len(view)})
}

func (s *Server) getElement(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["element"]
	var view tagview.ElementView
	var found bool
	if err := s.loop.do(r.Context(), func() {
		el, ok := s.reconciler.Tree().Element(name)
		if ok {
			view, found = el.View(), true
		}
	}); err != nil {
		s.fail(w, r, name, err)
		return
	}
	if !found {
		http.Error(w, tagview.ErrUnknownElement.Error()+": "+name, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) deleteElement(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["element"]
	var removed bool
	if err := s.loop.do(r.Context(), func() { removed = s.reconciler.RemoveElement(name) }); err != nil {
		s.fail(w, r, name, err)
		return
	}
	if !removed {
		http.Error(w, tagview.ErrUnknownElement.Error()+": "+name, http.StatusNotFound)
		return
	}
	s.LogAPIOperation(r.Method, r.URL.Path, name, "success", http.StatusNoContent, "", "Element removed")
	w.WriteHeader(http.StatusNoContent)
}

// withTag runs fn on the loop against the addressed tag and answers with the
// tag's view afterwards.
func (s *Server) withTag(w http.ResponseWriter, r *http.Request, fn func(*tagview.TagNode) error) {
	vars := mux.Vars(r)
	element, tag := vars["element"], vars["tag"]
	var view tagview.TagView
	var opErr error
	err := s.loop.do(r.Context(), func() {
		tn, err := s.reconciler.Lookup(element, tag)
		if err != nil {
			opErr = err
			return
		}
		if fn != nil {
			opErr = fn(tn)
		}
		view = tn.View()
	})
	if err == nil {
		err = opErr
	}
	if err != nil {
		s.fail(w, r, element+"/"+tag, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) getTag(w http.ResponseWriter, r *http.Request) {
	s.withTag(w, r, nil)
}

func (s *Server) focusTag(w http.ResponseWriter, r *http.Request) {
	s.withTag(w, r, func(tn *tagview.TagNode) error {
		return s.reconciler.BeginEdit(tn.Element().Name(), tn.Name())
	})
}

func (s *Server) blurTag(w http.ResponseWriter, r *http.Request) {
	s.withTag(w, r, func(tn *tagview.TagNode) error {
		return s.reconciler.CancelEdit(tn.Element().Name(), tn.Name())
	})
}

func decodeInput(r *http.Request) (client.InputRequest, error) {
	var req client.InputRequest
	if r.Body == nil || r.ContentLength == 0 {
		return req, nil
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, err
	}
	return req, nil
}

func (s *Server) inputTag(w http.ResponseWriter, r *http.Request) {
	req, err := decodeInput(r)
	if err != nil || req.Display == nil {
		http.Error(w, "Invalid input: a display value is required", http.StatusBadRequest)
		return
	}
	s.withTag(w, r, func(tn *tagview.TagNode) error {
		return tn.Widget().Input(*req.Display)
	})
}

func (s *Server) editTag(w http.ResponseWriter, r *http.Request) {
	req, err := decodeInput(r)
	if err != nil {
		http.Error(w, "Invalid input format", http.StatusBadRequest)
		return
	}
	s.interact(w, r, "interaction.edit", func(tn *tagview.TagNode) (*tagview.Mutation, error) {
		if req.Display != nil {
			if err := tn.Widget().Input(*req.Display); err != nil {
				return nil, err
			}
		}
		return s.extractor.OnEdit(tn.Widget())
	})
}

func (s *Server) clickTag(w http.ResponseWriter, r *http.Request) {
	s.interact(w, r, "interaction.click", func(tn *tagview.TagNode) (*tagview.Mutation, error) {
		return s.extractor.OnToggle(tn.Widget())
	})
}

// interact runs an extractor call on the loop and queues the resulting
// mutation for the device without waiting for it to be delivered.
func (s *Server) interact(w http.ResponseWriter, r *http.Request, spanName string, fn func(*tagview.TagNode) (*tagview.Mutation, error)) {
	vars := mux.Vars(r)
	element, tag := vars["element"], vars["tag"]
	resource := element + "/" + tag

	ctx, span := s.tracer.Start(r.Context(), spanName)
	defer span.End()
	span.SetAttributes(attribute.String("tag.element", element), attribute.String("tag.name", tag))

	var resp client.InteractionResponse
	var opErr error
	err := s.loop.do(ctx, func() {
		tn, err := s.reconciler.Lookup(element, tag)
		if err != nil {
			opErr = err
			return
		}
		resp.Mutation, opErr = fn(tn)
		resp.Tag = tn.View()
	})
	if err == nil {
		err = opErr
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.fail(w, r, resource, err)
		return
	}

	if resp.Mutation != nil {
		resp.RequestID = uuid.NewString()
		span.SetAttributes(attribute.String("request.id", resp.RequestID))
		if _, err := s.bus.Publish(pubsub.TopicMutations, &outbound{ID: resp.RequestID, Mutation: resp.Mutation}); err != nil {
			s.fail(w, r, resource, err)
			return
		}
		s.LogAPIOperation(r.Method, r.URL.Path, resource, "success", http.StatusOK, "", "Mutation "+resp.RequestID+" queued")
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) pushSnapshot(w http.ResponseWriter, r *http.Request) {
	var snap tagview.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		s.LogAPIOperation(r.Method, r.URL.Path, "", "error", http.StatusBadRequest, err.Error(), "")
		http.Error(w, "Invalid snapshot: "+err.Error(), http.StatusBadRequest)
		return
	}
	groups := s.config.Groups
	group := strings.TrimSpace(r.URL.Query().Get("group"))
	if group != "" {
		groups = []string{group}
	}
	stats, err := s.applySnapshot(r.Context(), &snap, groups)
	if err != nil {
		s.fail(w, r, "", err)
		return
	}
	s.LogAPIOperation(r.Method, r.URL.Path, group, "success", http.StatusOK, "", stats.String())
	writeJSON(w, http.StatusOK, client.RenderResponse{Group: group, Stats: stats})
}

func (s *Server) getLogs(w http.ResponseWriter, r *http.Request) {
	logs := s.apiLogs.Snapshot(0)
	if logs == nil {
		logs = []APILogEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs, "count": len(logs)})
}

func (s *Server) clearLogs(w http.ResponseWriter, r *http.Request) {
	s.apiLogs.Clear()
	w.WriteHeader(http.StatusOK)
}
