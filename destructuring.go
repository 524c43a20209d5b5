package lapis

import "github.com/ambiyansyah-risyal/lapis/jsonvalue"

// DestructuringFactor describes the business envelope of a response body.
// Key paths accept '|' between alternatives and '.' between nested keys.
type DestructuringFactor struct {
	SuccessCode       int    `json:"successCode" yaml:"success_code" env:"LAPIS_ENVELOPE_SUCCESS_CODE"`
	StatusCodeKeyPath string `json:"statusCodeKeyPath" yaml:"status_code_key_path" env:"LAPIS_ENVELOPE_STATUS_PATH"`
	MessageKeyPath    string `json:"messageKeyPath" yaml:"message_key_path" env:"LAPIS_ENVELOPE_MESSAGE_PATH"`
	ModelKeyPath      string `json:"modelKeyPath" yaml:"model_key_path" env:"LAPIS_ENVELOPE_MODEL_PATH"`
}

// DefaultDestructuringFactor matches {"code":200,"message":"...","result":...}.
func DefaultDestructuringFactor() DestructuringFactor {
	return DestructuringFactor{
		SuccessCode:       200,
		StatusCodeKeyPath: "code",
		MessageKeyPath:    "message|error|msg",
		ModelKeyPath:      "result",
	}
}

// Result is the business outcome carried in a response envelope.
type Result struct {
	Success bool
	Code    int
	Message string
}

// Destructure extracts the business result from the root of body. A body
// whose status value is missing or not an integer counts as success with the
// configured success code.
func (df DestructuringFactor) Destructure(body jsonvalue.Value) Result {
	message := body.Lookup(df.MessageKeyPath).StringValue()
	if df.MessageKeyPath == "" {
		message = ""
	}

	var status jsonvalue.Value
	if df.StatusCodeKeyPath != "" {
		status = body.Lookup(df.StatusCodeKeyPath)
	}
	code, ok := status.AsInt()
	if !ok {
		return Result{Success: true, Code: df.SuccessCode, Message: message}
	}
	return Result{Success: code == df.SuccessCode, Code: code, Message: message}
}

// Model navigates body to the model key path.
func (df DestructuringFactor) Model(body jsonvalue.Value) jsonvalue.Value {
	return body.Lookup(df.ModelKeyPath)
}
