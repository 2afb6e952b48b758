package funcs

import (
	"bytes"
	"encoding/base64"
	"encoding/json"

	"github.com/specialistvlad/terrane/internal/diag"
	"github.com/specialistvlad/terrane/internal/value"
)

func registerEncoding(r *Registry) {
	r.register(&Spec{
		Name:   "jsonencode",
		Params: []Param{anyP},
		Impl:   jsonencodeImpl,
	})
	r.register(&Spec{
		Name:   "jsondecode",
		Params: []Param{stringP},
		Impl:   jsondecodeImpl,
	})
	r.register(simpleString("base64encode", func(s string) string {
		return base64.StdEncoding.EncodeToString([]byte(s))
	}))
	r.register(&Spec{
		Name:   "base64decode",
		Params: []Param{stringP},
		Impl: func(args []value.Value) (value.Value, error) {
			b, err := base64.StdEncoding.DecodeString(args[0].AsString())
			if err != nil {
				return value.Value{}, diag.ConversionError{From: "base64", To: "string", Detail: err.Error()}
			}
			return value.StringVal(string(b)), nil
		},
	})
}

func jsonencodeImpl(args []value.Value) (value.Value, error) {
	g, err := value.ToGo(args[0])
	if err != nil {
		return value.Value{}, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(g); err != nil {
		return value.Value{}, diag.ConversionError{From: args[0].Kind().String(), To: "json", Detail: err.Error()}
	}
	// Encoder appends a newline; the function result must not carry it.
	return value.StringVal(string(bytes.TrimRight(buf.Bytes(), "\n"))), nil
}

func jsondecodeImpl(args []value.Value) (value.Value, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(args[0].AsString())))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return value.Value{}, diag.ConversionError{From: "json", To: "value", Detail: err.Error()}
	}
	return value.FromGo(raw)
}
