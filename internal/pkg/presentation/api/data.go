package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/diwise/iot-inventory-admin/pkg/types"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/rs/zerolog"
)

type dataRequest struct {
	Entity string          `json:"entity"`
	Data   json.RawMessage `json:"data"`
}

func isEmptyData(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) == 0 || bytes.Equal(data, []byte("null"))
}

// dataHandler serves the single entity endpoint used by the admin web app,
// where the entity type and id are passed as query parameters.
func dataHandler(log zerolog.Logger, store Inventory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "data-"+r.Method)
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		entity := types.Entity(r.URL.Query().Get("entity"))
		id := r.URL.Query().Get("id")

		switch r.Method {
		case http.MethodGet:
			if entity == "" {
				writeErrorMessage(w, http.StatusBadRequest, "Entity parameter is required")
				return
			}
			if !entity.Valid() {
				writeErrorMessage(w, http.StatusBadRequest, "Invalid entity type")
				return
			}

			if id != "" {
				var result any
				result, err = getEntity(ctx, store, entity, id)
				if err != nil {
					writeError(w, requestLogger, err)
					return
				}
				writeJSON(w, requestLogger, http.StatusOK, result)
				return
			}

			var filter *types.FilterOptions
			var sort *types.SortOptions
			filter, sort, err = parseQuery(r)
			if err != nil {
				writeError(w, requestLogger, err)
				return
			}
			writeJSON(w, requestLogger, http.StatusOK, listEntities(ctx, store, entity, filter, sort))

		case http.MethodPost:
			req := dataRequest{}
			err = json.NewDecoder(r.Body).Decode(&req)
			if err != nil || req.Entity == "" || isEmptyData(req.Data) {
				writeErrorMessage(w, http.StatusBadRequest, "Entity and data parameters are required")
				return
			}

			entity = types.Entity(req.Entity)
			if !entity.Valid() {
				writeErrorMessage(w, http.StatusBadRequest, "Invalid entity type")
				return
			}

			var result any
			result, err = createEntity(ctx, store, entity, req.Data)
			if err != nil {
				writeError(w, requestLogger, err)
				return
			}
			writeJSON(w, requestLogger, http.StatusOK, result)

		case http.MethodPut:
			var body []byte
			body, err = io.ReadAll(r.Body)
			if err != nil || entity == "" || id == "" || isEmptyData(body) {
				writeErrorMessage(w, http.StatusBadRequest, "Entity, ID and data parameters are required")
				return
			}
			if !entity.Valid() {
				writeErrorMessage(w, http.StatusBadRequest, "Invalid entity type")
				return
			}

			var result any
			result, err = updateEntity(ctx, store, entity, id, body)
			if err != nil {
				writeError(w, requestLogger, err)
				return
			}
			writeJSON(w, requestLogger, http.StatusOK, result)

		case http.MethodDelete:
			if entity == "" || id == "" {
				writeErrorMessage(w, http.StatusBadRequest, "Entity and ID parameters are required")
				return
			}
			if !entity.Valid() {
				writeErrorMessage(w, http.StatusBadRequest, "Invalid entity type")
				return
			}

			err = deleteEntity(ctx, store, entity, id)
			if err != nil {
				writeError(w, requestLogger, err)
				return
			}
			writeJSON(w, requestLogger, http.StatusOK, map[string]bool{"success": true})

		default:
			w.Header().Set("Allow", "GET, POST, PUT, DELETE")
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}
