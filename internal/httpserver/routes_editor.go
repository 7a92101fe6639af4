// internal/httpserver/routes_editor.go
//
// Stateless grid-authoring routes. Every route takes a draft (or puzzle) as
// the JSON body and returns the edited draft; nothing is stored server side.
//   - POST /editor/new?rows=&cols=        → blank draft
//   - POST /editor/import                 → puzzle JSON → draft
//   - POST /editor/resize?rows=&cols=     → resized draft
//   - POST /editor/rows?edge=top|bottom   → row inserted
//   - POST /editor/cols?edge=left|right   → column inserted
//   - POST /editor/rows/delete?index=n    → row removed
//   - POST /editor/cols/delete?index=n    → column removed
//   - POST /editor/trim                   → cropped to the used cells
//   - POST /editor/export                 → validated puzzle JSON (with answers)

package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/hugolynch/double-speak/internal/editor"
	"github.com/hugolynch/double-speak/internal/puzzle"
)

type editParams struct {
	Rows  int    `schema:"rows"`
	Cols  int    `schema:"cols"`
	Edge  string `schema:"edge"`
	Index int    `schema:"index"`
}

type draftRes struct {
	Changed bool          `json:"changed"`
	Draft   *editor.Draft `json:"draft"`
}

func (s *Server) mountEditor(r chi.Router) {
	r.Route("/editor", func(r chi.Router) {
		r.Post("/new", s.handleNewDraft)
		r.Post("/import", s.handleImport)
		r.Post("/resize", editDraft(func(d *editor.Draft, q editParams) bool {
			d.Resize(q.Rows, q.Cols)
			return true
		}))
		r.Post("/rows", editDraft(func(d *editor.Draft, q editParams) bool {
			return d.InsertRow(editor.Edge(q.Edge))
		}))
		r.Post("/cols", editDraft(func(d *editor.Draft, q editParams) bool {
			return d.InsertCol(editor.Edge(q.Edge))
		}))
		r.Post("/rows/delete", editDraft(func(d *editor.Draft, q editParams) bool {
			return d.DeleteRow(q.Index)
		}))
		r.Post("/cols/delete", editDraft(func(d *editor.Draft, q editParams) bool {
			return d.DeleteCol(q.Index)
		}))
		r.Post("/trim", editDraft(func(d *editor.Draft, q editParams) bool {
			rows, cols := d.Rows, d.Cols
			d.Trim()
			return d.Rows != rows || d.Cols != cols
		}))
		r.Post("/export", s.handleExport)
	})
}

func (s *Server) handleNewDraft(w http.ResponseWriter, r *http.Request) {
	var q editParams
	if !decodeQuery(w, r, &q) {
		return
	}
	writeJSON(w, draftRes{Changed: true, Draft: editor.NewDraft(q.Rows, q.Cols)})
}

// handleImport opens an existing puzzle definition for editing.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	p, err := puzzle.Decode(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	if len(p.Grid.Cells) != p.Grid.Rows*p.Grid.Cols {
		if !writeInvalid(w, p.Validate()) {
			writeError(w, http.StatusUnprocessableEntity, "invalid_puzzle")
		}
		return
	}
	d := editor.FromPuzzle(p)
	if err := d.Check(); err != nil {
		writeInvalid(w, err)
		return
	}
	writeJSON(w, draftRes{Changed: true, Draft: d})
}

// editDraft decodes query params and a draft body, applies op and returns the draft.
func editDraft(op func(d *editor.Draft, q editParams) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q editParams
		if !decodeQuery(w, r, &q) {
			return
		}
		d, ok := readDraft(w, r)
		if !ok {
			return
		}
		changed := op(d, q)
		writeJSON(w, draftRes{Changed: changed, Draft: d})
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	d, ok := readDraft(w, r)
	if !ok {
		return
	}
	p, err := d.Export()
	if err != nil {
		if !writeInvalid(w, err) {
			hlog.FromRequest(r).Error().Err(err).Msg("export draft")
			writeError(w, http.StatusInternalServerError, "server_error")
		}
		return
	}
	writeJSON(w, p)
}

// readDraft decodes a draft body and rejects malformed shapes.
func readDraft(w http.ResponseWriter, r *http.Request) (*editor.Draft, bool) {
	var d editor.Draft
	if !decodeBody(w, r, &d) {
		return nil, false
	}
	if err := d.Check(); err != nil {
		writeInvalid(w, err)
		return nil, false
	}
	return &d, true
}
