package chessproto

import (
	"encoding/json"
	"testing"
)

func TestEnvelope_WireShape(t *testing.T) {
	raw, err := json.Marshal(MustEnvelope(EventPlayerRole, "w"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"event":"playerRole","data":"w"}` {
		t.Fatalf("unexpected frame %s", raw)
	}

	raw, err = json.Marshal(MustEnvelope(EventGameRestarted, nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"event":"gameRestarted"}` {
		t.Fatalf("unexpected frame %s", raw)
	}
}

func TestEnvelope_Decode(t *testing.T) {
	var env Envelope
	if err := json.Unmarshal([]byte(`{"event":"move","data":{"from":"e2","to":"e4","promotion":"q"}}`), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	var req MoveRequest
	if err := env.Decode(&req); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.From != "e2" || req.To != "e4" || req.Promotion != "q" {
		t.Fatalf("unexpected move %+v", req)
	}

	if err := (Envelope{Event: EventMove}).Decode(&req); err != errEmptyPayload {
		t.Fatalf("want errEmptyPayload, got %v", err)
	}
}

func TestGameOver_NullWinner(t *testing.T) {
	raw, err := json.Marshal(GameOver{Result: "stalemate"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"result":"stalemate","winner":null}` {
		t.Fatalf("unexpected payload %s", raw)
	}
}
