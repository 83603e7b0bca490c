package render

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"termfi/core"
)

// H shortcut for a json object
type H map[string]interface{}

// JSON render with json
func JSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorln("render:", err)
	}
}

// Error write error
func Error(w http.ResponseWriter, statusCode int, errCode core.ErrorCode, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(H{"code": errCode, "msg": err.Error()}); err != nil {
		logrus.Errorln("render:", err)
	}
}

// BadRequest bad request error
func BadRequest(w http.ResponseWriter, err error) {
	Error(w, http.StatusBadRequest, core.CodeOf(err, core.ErrInvalidArgument), err)
}

// NotFoundRequest not found request error
func NotFoundRequest(w http.ResponseWriter, err error) {
	Error(w, http.StatusNotFound, core.CodeOf(err, core.ErrUnknown), err)
}
