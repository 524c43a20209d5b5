package lapis

import (
	"testing"

	"github.com/ambiyansyah-risyal/lapis/jsonvalue"
)

func TestDestructure(t *testing.T) {
	df := DefaultDestructuringFactor()

	tests := []struct {
		name string
		body string
		want Result
	}{
		{"success envelope", `{"code":200,"message":"ok","result":{}}`, Result{Success: true, Code: 200, Message: "ok"}},
		{"empty object", `{}`, Result{Success: true, Code: 200}},
		{"business failure", `{"code":500,"error":"internal"}`, Result{Success: false, Code: 500, Message: "internal"}},
		{"string code is ignored", `{"code":"500","msg":"fine"}`, Result{Success: true, Code: 200, Message: "fine"}},
		{"quoted failure code", `{"code":"500"}`, Result{Success: true, Code: 200}},
		{"double code", `{"code":2.0}`, Result{Success: true, Code: 200}},
		{"bool code", `{"code":true}`, Result{Success: true, Code: 200}},
		{"message alternatives in order", `{"code":1,"error":"e","msg":"m"}`, Result{Success: false, Code: 1, Message: "e"}},
		{"non json body", `not json`, Result{Success: true, Code: 200}},
		{"numeric message", `{"message":42}`, Result{Success: true, Code: 200, Message: "42"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := df.Destructure(jsonvalue.ParseString(tt.body))
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestDestructure_NestedPaths(t *testing.T) {
	df := DestructuringFactor{SuccessCode: 0, StatusCodeKeyPath: "meta.status", MessageKeyPath: "meta.text", ModelKeyPath: "payload.items|payload"}
	body := jsonvalue.ParseString(`{"meta":{"status":0,"text":"done"},"payload":{"items":[1]}}`)

	if got := df.Destructure(body); got != (Result{Success: true, Code: 0, Message: "done"}) {
		t.Errorf("Expected success 0 done, got %+v", got)
	}
	if got := df.Model(body).Raw(); got != "[1]" {
		t.Errorf("Expected model [1], got %s", got)
	}
}

func TestDestructure_EmptyStatusPath(t *testing.T) {
	df := DestructuringFactor{SuccessCode: 7}
	got := df.Destructure(jsonvalue.ParseString(`{"code":500}`))
	if !got.Success || got.Code != 7 || got.Message != "" {
		t.Errorf("Expected success 7 without message, got %+v", got)
	}
}

func TestResponse_JSONAndModel(t *testing.T) {
	resp := testResponse(`{"code":200,"result":{"id":9}}`)

	if resp.JSON().At("code").IntValue() != 200 {
		t.Error("Expected JSON() to expose the whole body")
	}
	if resp.ToValue().At("id").IntValue() != 9 {
		t.Error("Expected ToValue() to navigate to the model")
	}

	body := resp.Body()
	body[0] = 'X'
	if resp.Body()[0] != '{' {
		t.Error("Expected Body() to return a copy")
	}
}

type mappedUser struct {
	ID       int    `json:"id"`
	Nickname string `json:"-"`
	mapped   bool
}

func (u *mappedUser) Mapping(node jsonvalue.Value) {
	u.mapped = true
	u.Nickname = node.Lookup("profile.nick|nick").StringValue()
}

type snakeUser struct {
	UserID    int    `json:"userId"`
	FirstName string `json:"firstName"`
}

func (snakeUser) KeyStrategy() KeyStrategy { return KeySnakeCase }

func TestMapObject(t *testing.T) {
	resp := testResponse(`{"code":200,"result":{"id":3,"profile":{"nick":"neo"}}}`)

	user := MapObject[mappedUser](resp)
	if user.ID != 3 {
		t.Errorf("Expected ID 3, got %d", user.ID)
	}
	if !user.mapped || user.Nickname != "neo" {
		t.Errorf("Expected Mapping to run, got %+v", user)
	}
}

func TestMapObject_DecodeFailureKeepsZeroAndMaps(t *testing.T) {
	resp := testResponse(`{"code":200,"result":{"id":"not a number","nick":"x"}}`)

	user := MapObject[mappedUser](resp)
	if user.ID != 0 {
		t.Errorf("Expected zero ID after a failed decode, got %d", user.ID)
	}
	if !user.mapped || user.Nickname != "x" {
		t.Errorf("Expected Mapping to run after a failed decode, got %+v", user)
	}
}

func TestMapObject_MissingModel(t *testing.T) {
	user := MapObject[streamUser](testResponse(`{"code":200}`))
	if user != (streamUser{}) {
		t.Errorf("Expected zero value for a missing model, got %+v", user)
	}
}

func TestMapObject_SnakeCase(t *testing.T) {
	resp := testResponse(`{"result":{"user_id":5,"first_name":"Ada"}}`)

	user := MapObject[snakeUser](resp)
	if user.UserID != 5 || user.FirstName != "Ada" {
		t.Errorf("Expected snake_case keys to decode, got %+v", user)
	}
}

func TestMapArray(t *testing.T) {
	users := MapArray[mappedUser](testResponse(`{"result":[{"id":1,"nick":"a"},{"id":2,"nick":"b"}]}`))
	if len(users) != 2 {
		t.Fatalf("Expected 2 users, got %d", len(users))
	}
	if users[1].ID != 2 || users[1].Nickname != "b" {
		t.Errorf("Expected second user decoded and mapped, got %+v", users[1])
	}

	if got := MapArray[mappedUser](testResponse(`{"result":{"id":1}}`)); len(got) != 0 {
		t.Errorf("Expected empty slice for a non-array model, got %v", got)
	}
}

func TestMapObjResult(t *testing.T) {
	result, user := MapObjResult[streamUser](testResponse(okEnvelope))
	if !result.Success || result.Message != "ok" {
		t.Errorf("Expected success ok, got %+v", result)
	}
	if user.ID != 1 || user.Name != "lapis" {
		t.Errorf("Expected decoded user, got %+v", user)
	}
}

func TestDecode_Value(t *testing.T) {
	v := Decode[jsonvalue.Value](jsonvalue.ParseString(`{"a":[1,2.5]}`))
	if v.At("a", 1).DoubleValue() != 2.5 {
		t.Errorf("Expected Decode into Value to keep the tree, got %s", v.Raw())
	}
}
