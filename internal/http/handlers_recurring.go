package http

import (
	"errors"
	"fmt"
	"net/http"

	"moneytracker/internal/core"
	"moneytracker/internal/log"
	"moneytracker/internal/recurring"
)

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.ledger.ListTemplates(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	out := make([]templateView, 0, len(templates))
	for _, t := range templates {
		out = append(out, newTemplateView(t))
	}
	OK(w, map[string]any{"recurring": out})
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	t, err := s.ledger.GetTemplate(r.Context(), id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	OK(w, map[string]any{"recurring": newTemplateView(t)})
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r, defaultBodyLimit)
	if err := p.Parse(); err != nil {
		WriteError(w, r, err)
		return
	}

	t := core.RecurringTemplate{Note: p.Get("note"), Enabled: true}
	var err error
	if t.CategoryID, err = p.GetID("category_id"); err != nil {
		WriteError(w, r, err)
		return
	}
	if t.Amount, err = p.GetAmount("amount"); err != nil {
		WriteError(w, r, err)
		return
	}
	if t.DayOfMonth, err = p.GetInt("day_of_month"); err != nil {
		WriteError(w, r, err)
		return
	}
	if p.Has("enabled") {
		if t.Enabled, err = p.GetBool("enabled"); err != nil {
			WriteError(w, r, err)
			return
		}
	}
	if t.Variable, err = p.GetBool("variable"); err != nil {
		WriteError(w, r, err)
		return
	}

	id, err := s.ledger.CreateTemplate(r.Context(), t)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Recurring template created",
		log.FieldTemplateID, id,
		log.FieldOperation, log.OpCreate)
	Created(w, id)
}

// parseTemplatePatch reads only the fields present in the body.
func parseTemplatePatch(p *RequestBodyParser) (core.TemplatePatch, error) {
	var patch core.TemplatePatch
	if p.Has("category_id") {
		v, err := p.GetID("category_id")
		if err != nil {
			return patch, err
		}
		patch.CategoryID = &v
	}
	if p.Has("amount") {
		v, err := p.GetAmount("amount")
		if err != nil {
			return patch, err
		}
		patch.Amount = &v
	}
	if p.Has("day_of_month") {
		v, err := p.GetInt("day_of_month")
		if err != nil {
			return patch, err
		}
		patch.DayOfMonth = &v
	}
	if p.Has("note") {
		v := p.Get("note")
		patch.Note = &v
	}
	if p.Has("enabled") {
		v, err := p.GetBool("enabled")
		if err != nil {
			return patch, err
		}
		patch.Enabled = &v
	}
	if p.Has("variable") {
		v, err := p.GetBool("variable")
		if err != nil {
			return patch, err
		}
		patch.Variable = &v
	}
	return patch, nil
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	p := NewRequestBodyParser(r, defaultBodyLimit)
	if err := p.Parse(); err != nil {
		WriteError(w, r, err)
		return
	}
	patch, err := parseTemplatePatch(p)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if patch.Empty() {
		WriteError(w, r, fmt.Errorf("%w: nothing to update", core.ErrValidation))
		return
	}

	t, err := s.ledger.UpdateTemplate(r.Context(), id, patch)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	OK(w, map[string]any{"ok": true, "recurring": newTemplateView(t)})
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if err := s.ledger.DeleteTemplate(r.Context(), id); err != nil {
		WriteError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Recurring template deleted",
		log.FieldTemplateID, id,
		log.FieldOperation, log.OpDelete)
	Ack(w)
}

// handleApplyRecurring runs the engine for {month_key, overrides}. When some
// templates fail the committed outcomes are still reported, with the error.
func (s *Server) handleApplyRecurring(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r, defaultBodyLimit)
	if err := p.Parse(); err != nil {
		WriteError(w, r, err)
		return
	}

	var overrides core.Overrides
	if p.Has("overrides") {
		if err := p.Decode("overrides", &overrides); err != nil {
			WriteError(w, r, err)
			return
		}
	}

	res, err := s.engine.Apply(r.Context(), p.Get("month_key"), overrides)
	var applyErr *recurring.ApplyError
	switch {
	case errors.As(err, &applyErr):
		body := newApplyView(res)
		body.OK = false
		NewJSONResponse().
			Status(StatusForError(err)).
			Body(struct {
				applyView
				Error string `json:"error"`
			}{body, applyErr.Error()}).
			Write(w)
		return
	case err != nil:
		WriteError(w, r, err)
		return
	}
	OK(w, newApplyView(res))
}
