package handler

import "encoding/json"

// mustEncodeBody marshals a response DTO whose fields are all known
// at compile time; a marshal failure here would be a programming
// error, not a runtime condition callers need to branch on.
func mustEncodeBody(body interface{}) string {
	out, err := json.Marshal(body)
	if err != nil {
		panic(err)
	}
	return string(out)
}
