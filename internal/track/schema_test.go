package track

import "testing"

func TestValidateExpectedValue_CompletionTime(t *testing.T) {
	if err := ValidateExpectedValue(KindCompletionTime, Payload{"due": "2026-09-04T12:00:00Z"}); err != nil {
		t.Errorf("valid completion_time value rejected: %v", err)
	}

	err := ValidateExpectedValue(KindCompletionTime, Payload{})
	if err == nil {
		t.Fatal("completion_time without due accepted")
	}
	if !hasCode(err, ErrCodeInvalidValue) {
		t.Errorf("error code = %v, want INVALID_VALUE", err)
	}

	if err := ValidateExpectedValue(KindCompletionTime, Payload{"due": 42}); err == nil {
		t.Error("completion_time with numeric due accepted")
	}
}

func TestValidateExpectedValue_Duration(t *testing.T) {
	if err := ValidateExpectedValue(KindDuration, Payload{"minutes": 90}); err != nil {
		t.Errorf("valid duration value rejected: %v", err)
	}
	if err := ValidateExpectedValue(KindDuration, Payload{"minutes": 90.5, "tolerance_minutes": 10}); err != nil {
		t.Errorf("valid duration value with tolerance rejected: %v", err)
	}

	if err := ValidateExpectedValue(KindDuration, Payload{"minutes": 0}); err == nil {
		t.Error("zero-minute duration accepted")
	}
	if err := ValidateExpectedValue(KindDuration, Payload{}); err == nil {
		t.Error("duration without minutes accepted")
	}
}

func TestValidateExpectedValue_Quantity(t *testing.T) {
	if err := ValidateExpectedValue(KindQuantity, Payload{"quantity": 500}); err != nil {
		t.Errorf("valid quantity value rejected: %v", err)
	}

	if err := ValidateExpectedValue(KindQuantity, Payload{"quantity": -1}); err == nil {
		t.Error("negative quantity accepted")
	}
	if err := ValidateExpectedValue(KindQuantity, Payload{"quantity": "many"}); err == nil {
		t.Error("string quantity accepted")
	}
}

func TestValidateExpectedValue_Delivery(t *testing.T) {
	if err := ValidateExpectedValue(KindDelivery, Payload{"due": "2026-09-10T08:00:00Z", "carrier": "dhl"}); err != nil {
		t.Errorf("valid delivery value rejected: %v", err)
	}

	if err := ValidateExpectedValue(KindDelivery, Payload{"carrier": "dhl"}); err == nil {
		t.Error("delivery without due accepted")
	}
}

func TestValidateExpectedValue_UnknownKind(t *testing.T) {
	err := ValidateExpectedValue("punctuality", Payload{"due": "2026-09-04T12:00:00Z"})
	if err == nil {
		t.Fatal("unknown kind accepted")
	}
	if !hasCode(err, ErrCodeInvalidKind) {
		t.Errorf("error code = %v, want INVALID_KIND", err)
	}
}

func TestValidateExpectedValue_ExtraPropertiesAllowed(t *testing.T) {
	value := Payload{"due": "2026-09-04T12:00:00Z", "shift": "night", "priority": 3}
	if err := ValidateExpectedValue(KindCompletionTime, value); err != nil {
		t.Errorf("extra properties should be allowed: %v", err)
	}
}
