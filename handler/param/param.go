// Package param binds request parameters: query string values through
// gorilla/schema, json bodies through encoding/json, both validated
// with govalidator tags.
package param

import (
	"encoding/json"
	"net/http"

	"github.com/asaskevich/govalidator"
	"github.com/gorilla/schema"
)

var decoder = newDecoder()

func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.SetAliasTag("json")
	d.IgnoreUnknownKeys(true)
	return d
}

// Binding bind and validate request parameters into v
func Binding(r *http.Request, v interface{}) error {
	if r.Method == http.MethodGet || r.Body == nil {
		if err := decoder.Decode(v, r.URL.Query()); err != nil {
			return err
		}
	} else if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}

	if _, err := govalidator.ValidateStruct(v); err != nil {
		return err
	}

	return nil
}
