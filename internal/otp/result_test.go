package otp

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		payload string
		isCode  bool
	}{
		{"483920", true},
		{"0", true},
		{"", false},
		{"48392a", false},
		{" 483920", false},
		{"483920\n", false},
		{"Error getting OTP, check your PIN", false},
		{"Token 123456 expired", false},
		{"١٢٣", false}, // non-ASCII digits
	}

	for _, tt := range tests {
		r := Classify(tt.payload)
		if r.IsCode() != tt.isCode {
			t.Errorf("Classify(%q).IsCode() = %v, want %v", tt.payload, r.IsCode(), tt.isCode)
		}
		if tt.isCode && r.Code() != tt.payload {
			t.Errorf("Classify(%q).Code() = %q", tt.payload, r.Code())
		}
		if !tt.isCode && r.Message() != tt.payload {
			t.Errorf("Classify(%q).Message() = %q", tt.payload, r.Message())
		}
	}
}

func TestResultString(t *testing.T) {
	if got := Code("123").String(); got != "123" {
		t.Errorf("Code.String() = %q", got)
	}
	if got := Error(MsgTimeout).String(); got != MsgTimeout {
		t.Errorf("Error.String() = %q", got)
	}
	if Error(MsgUnknown).IsCode() {
		t.Error("Error result must not be a code")
	}
}
