package httputil

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// GetBoolQueryParameters reads the specified boolean query parameters from
// the request, a missing or blank parameter is false. If any of them can't
// be parsed, it'll write a 400 status code as well as the reasoning for the
// error into the ResponseWriter, and also return false.
func GetBoolQueryParameters(w http.ResponseWriter, r *http.Request, paramKeys ...string) (map[string]bool, zerolog.Logger, bool) {
	params := make(map[string]bool, len(paramKeys))
	logger := log.With()
	query := r.URL.Query()
	for _, key := range paramKeys {
		value := query.Get(key)
		if value == "" {
			params[key] = false
			continue
		}
		b, err := strconv.ParseBool(value)
		if err != nil {
			http.Error(w, fmt.Sprintf("expected a boolean for the %s query parameter", key), http.StatusBadRequest)
			return nil, zerolog.Nop(), false
		}
		params[key] = b
		logger = logger.Bool(key, b)
	}
	return params, logger.Logger(), true
}
