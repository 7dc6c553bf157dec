package process

import (
	"errors"
	"testing"
)

func TestChannelCatalogShape(t *testing.T) {
	channels := Channels()
	if len(channels) != SlotCount {
		t.Fatalf("channel count: want %d, got %d", SlotCount, len(channels))
	}
	seen := make(map[string]bool, SlotCount)
	for i, spec := range channels {
		if spec.Slot != i {
			t.Fatalf("slot %d out of order: spec slot %d", i, spec.Slot)
		}
		if spec.Code == "" || spec.Name == "" {
			t.Fatalf("slot %d missing code or name", i)
		}
		if seen[spec.Code] {
			t.Fatalf("duplicate channel code %s", spec.Code)
		}
		seen[spec.Code] = true
	}
	for i := 0; i < PrimaryCount; i++ {
		if channels[i].Kind != KindMeasurement {
			t.Fatalf("slot %d: want measurement kind, got %s", i, channels[i].Kind)
		}
		if channels[i].Baseline == 0 {
			t.Fatalf("slot %d: primary measurement has no baseline", i)
		}
	}
	for i := PrimaryCount; i < MeasurementCount; i++ {
		if channels[i].Kind != KindComposition {
			t.Fatalf("slot %d: want composition kind, got %s", i, channels[i].Kind)
		}
	}
	for i := MeasurementCount; i < SlotCount; i++ {
		if channels[i].Kind != KindManipulated {
			t.Fatalf("slot %d: want manipulated kind, got %s", i, channels[i].Kind)
		}
	}
}

func TestChannelCodesOrder(t *testing.T) {
	codes := ChannelCodes()
	if len(codes) != SlotCount {
		t.Fatalf("code count: want %d, got %d", SlotCount, len(codes))
	}
	if codes[0] != "XMEAS(1)" {
		t.Fatalf("first code: %s", codes[0])
	}
	if codes[MeasurementCount-1] != "XMEAS(41)" {
		t.Fatalf("last measurement code: %s", codes[MeasurementCount-1])
	}
	if codes[MeasurementCount] != "XMV(1)" {
		t.Fatalf("first manipulated code: %s", codes[MeasurementCount])
	}
	if codes[SlotCount-1] != "XMV(11)" {
		t.Fatalf("last code: %s", codes[SlotCount-1])
	}
}

func TestChannelByCode(t *testing.T) {
	spec, err := ChannelByCode("xmeas(9)")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if spec.Name != "Reactor Temperature" {
		t.Fatalf("unexpected channel: %s", spec.Name)
	}
	if spec.Baseline != 120.4 {
		t.Fatalf("reactor temperature baseline: %v", spec.Baseline)
	}

	if _, err := ChannelByCode("XMEAS(99)"); !errors.Is(err, ErrChannelNotFound) {
		t.Fatalf("expected ErrChannelNotFound, got %v", err)
	}
}

func TestManipulatedDefaults(t *testing.T) {
	defaults := DefaultManipulated()
	if len(defaults) != ManipulatedCount {
		t.Fatalf("default count: want %d, got %d", ManipulatedCount, len(defaults))
	}
	if defaults[0] != 63.053 {
		t.Fatalf("XMV(1) default: %v", defaults[0])
	}

	defaults[0] = 0
	if fresh := DefaultManipulated(); fresh[0] != 63.053 {
		t.Fatalf("defaults aliased: %v", fresh[0])
	}
}

func TestMeasurementSpecBounds(t *testing.T) {
	if _, err := MeasurementSpec(-1); err == nil {
		t.Fatal("expected error for negative index")
	}
	if _, err := MeasurementSpec(MeasurementCount); err == nil {
		t.Fatal("expected error for out-of-range index")
	}
	spec, err := MeasurementSpec(6)
	if err != nil {
		t.Fatalf("spec: %v", err)
	}
	if spec.Code != "XMEAS(7)" || spec.Baseline != 2705.0 {
		t.Fatalf("reactor pressure spec: %+v", spec)
	}
}
