package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tobsch/snappy/internal/model"
)

// The document collections all share the same CRUD shape: a string-keyed map
// of pointers. The helpers below carry that shape once; the exported handlers
// stay thin wrappers so the route table reads naturally.

func listCollection[T any](h *Handler, w http.ResponseWriter, pick func(*model.Document) map[string]*T) {
	doc, err := h.store.Snapshot()
	if err != nil {
		h.writeError(w, "Failed to load document", err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, pick(doc), http.StatusOK)
}

func getItem[T any](h *Handler, w http.ResponseWriter, r *http.Request, kind string, pick func(*model.Document) map[string]*T) {
	id := r.PathValue("id")
	doc, err := h.store.Snapshot()
	if err != nil {
		h.writeError(w, "Failed to load document", err.Error(), http.StatusInternalServerError)
		return
	}
	item, ok := pick(doc)[id]
	if !ok {
		h.writeError(w, "Not found", fmt.Sprintf("%s %q does not exist", kind, id), http.StatusNotFound)
		return
	}
	h.writeJSON(w, item, http.StatusOK)
}

func putItem[T any](h *Handler, w http.ResponseWriter, r *http.Request, pick func(*model.Document) map[string]*T) {
	id := r.PathValue("id")
	var item T
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	created := false
	if !h.updateDocument(w, func(doc *model.Document) error {
		m := pick(doc)
		_, existed := m[id]
		created = !existed
		m[id] = &item
		return nil
	}) {
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.writeJSON(w, item, status)
}

func deleteItem[T any](h *Handler, w http.ResponseWriter, r *http.Request, kind string, pick func(*model.Document) map[string]*T) {
	id := r.PathValue("id")
	if !h.updateDocument(w, func(doc *model.Document) error {
		m := pick(doc)
		if _, ok := m[id]; !ok {
			return fmt.Errorf("%s %q: %w", kind, id, model.ErrNotFound)
		}
		delete(m, id)
		return nil
	}) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func amplifiers(doc *model.Document) map[string]*model.Amplifier { return doc.Amplifiers }
func speakers(doc *model.Document) map[string]*model.Speaker { return doc.Speakers }
func rooms(doc *model.Document) map[string]*model.Room       { return doc.Rooms }
func zones(doc *model.Document) map[string]*model.Zone       { return doc.Zones }
func inputs(doc *model.Document) map[string]*model.Input     { return doc.Inputs }
func streams(doc *model.Document) map[string]*model.Stream   { return doc.Snapcast.Streams }
func targets(doc *model.Document) map[string]*model.StreamTarget {
	return doc.Snapcast.StreamTargets
}

// ListAmplifiers returns all amplifiers
func (h *Handler) ListAmplifiers(w http.ResponseWriter, r *http.Request) {
	listCollection(h, w, amplifiers)
}

// GetAmplifier returns a single amplifier
func (h *Handler) GetAmplifier(w http.ResponseWriter, r *http.Request) {
	getItem(h, w, r, "amplifier", amplifiers)
}

// PutAmplifier creates or replaces an amplifier
func (h *Handler) PutAmplifier(w http.ResponseWriter, r *http.Request) {
	putItem(h, w, r, amplifiers)
}

// DeleteAmplifier removes an amplifier
func (h *Handler) DeleteAmplifier(w http.ResponseWriter, r *http.Request) {
	deleteItem(h, w, r, "amplifier", amplifiers)
}

// ListSpeakers returns all speakers
func (h *Handler) ListSpeakers(w http.ResponseWriter, r *http.Request) {
	listCollection(h, w, speakers)
}

// GetSpeaker returns a single speaker
func (h *Handler) GetSpeaker(w http.ResponseWriter, r *http.Request) {
	getItem(h, w, r, "speaker", speakers)
}

// PutSpeaker creates or replaces a speaker
func (h *Handler) PutSpeaker(w http.ResponseWriter, r *http.Request) {
	putItem(h, w, r, speakers)
}

// DeleteSpeaker removes a speaker
func (h *Handler) DeleteSpeaker(w http.ResponseWriter, r *http.Request) {
	deleteItem(h, w, r, "speaker", speakers)
}

// ListRooms returns all rooms
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	listCollection(h, w, rooms)
}

// GetRoom returns a single room
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	getItem(h, w, r, "room", rooms)
}

// PutRoom creates or replaces a room
func (h *Handler) PutRoom(w http.ResponseWriter, r *http.Request) {
	putItem(h, w, r, rooms)
}

// DeleteRoom removes a room
func (h *Handler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	deleteItem(h, w, r, "room", rooms)
}

// ListZones returns all zones
func (h *Handler) ListZones(w http.ResponseWriter, r *http.Request) {
	listCollection(h, w, zones)
}

// GetZone returns a single zone
func (h *Handler) GetZone(w http.ResponseWriter, r *http.Request) {
	getItem(h, w, r, "zone", zones)
}

// PutZone creates or replaces a zone
func (h *Handler) PutZone(w http.ResponseWriter, r *http.Request) {
	putItem(h, w, r, zones)
}

// DeleteZone removes a zone
func (h *Handler) DeleteZone(w http.ResponseWriter, r *http.Request) {
	deleteItem(h, w, r, "zone", zones)
}

// ListInputs returns all hardware capture inputs
func (h *Handler) ListInputs(w http.ResponseWriter, r *http.Request) {
	listCollection(h, w, inputs)
}

// GetInput returns a single input
func (h *Handler) GetInput(w http.ResponseWriter, r *http.Request) {
	getItem(h, w, r, "input", inputs)
}

// PutInput creates or replaces an input
func (h *Handler) PutInput(w http.ResponseWriter, r *http.Request) {
	putItem(h, w, r, inputs)
}

// DeleteInput removes an input
func (h *Handler) DeleteInput(w http.ResponseWriter, r *http.Request) {
	deleteItem(h, w, r, "input", inputs)
}

// ListStreams returns all streams
func (h *Handler) ListStreams(w http.ResponseWriter, r *http.Request) {
	listCollection(h, w, streams)
}

// GetStream returns a single stream
func (h *Handler) GetStream(w http.ResponseWriter, r *http.Request) {
	getItem(h, w, r, "stream", streams)
}

// PutStream creates or replaces a stream
func (h *Handler) PutStream(w http.ResponseWriter, r *http.Request) {
	putItem(h, w, r, streams)
}

// DeleteStream removes a stream
func (h *Handler) DeleteStream(w http.ResponseWriter, r *http.Request) {
	deleteItem(h, w, r, "stream", streams)
}

// ListTargets returns all stream targets
func (h *Handler) ListTargets(w http.ResponseWriter, r *http.Request) {
	listCollection(h, w, targets)
}

// PutTarget creates or replaces a stream target
func (h *Handler) PutTarget(w http.ResponseWriter, r *http.Request) {
	putItem(h, w, r, targets)
}

// DeleteTarget removes a stream target
func (h *Handler) DeleteTarget(w http.ResponseWriter, r *http.Request) {
	deleteItem(h, w, r, "stream target", targets)
}
