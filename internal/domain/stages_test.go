package domain

import (
	"testing"
	"time"
)

func TestStageCompletionIsWriteOnce(t *testing.T) {
	first := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	second := first.Add(2 * time.Hour)

	var stages OrderStages
	if !stages.CompleteStage(StagePacked, first, "packed at warehouse") {
		t.Fatal("first completion should apply")
	}
	if stages.CompleteStage(StagePacked, second, "packed again") {
		t.Fatal("second completion should be a no-op")
	}

	packed := stages.Stage(StagePacked)
	if packed.CompletedAt == nil || !packed.CompletedAt.Equal(first) {
		t.Fatalf("completedAt = %v, want first timestamp %v", packed.CompletedAt, first)
	}
	if packed.Notes != "packed at warehouse" {
		t.Fatalf("notes = %q, want the original note", packed.Notes)
	}
}

func TestUnknownStageNameIgnored(t *testing.T) {
	var stages OrderStages
	if stages.CompleteStage("warp", time.Now(), "") {
		t.Fatal("unknown stage names must not complete anything")
	}
}

func TestCompleteForwardStages(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	earlier := now.Add(-24 * time.Hour)

	var stages OrderStages
	stages.CompleteStage(StagePacked, earlier, "packed early")
	stages.CompleteForwardStages(now, "delivery completed")

	for _, name := range []OrderStageName{StageOrderPlaced, StagePacked, StageShipping, StageInProgress, StageOutForDelivery, StageDelivered} {
		if !stages.Stage(name).IsCompleted {
			t.Fatalf("stage %q should be complete", name)
		}
	}
	if !stages.Packed.CompletedAt.Equal(earlier) {
		t.Fatal("force-completion must not overwrite earlier timestamps")
	}
	if stages.ReturnInitiated.IsCompleted {
		t.Fatal("return stages must stay untouched")
	}
}

func TestResetForReturnClearsOnlyInFlightStages(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	var stages OrderStages
	stages.CompleteStage(StagePacked, now, "")
	stages.CompleteStage(StageInProgress, now, "")
	stages.CompleteStage(StageOutForDelivery, now, "")

	stages.ResetForReturn()

	if stages.InProgress.IsCompleted || stages.OutForDelivery.IsCompleted {
		t.Fatal("inProgress and outForDelivery must reset")
	}
	if stages.InProgress.CompletedAt != nil || stages.InProgress.Notes != "" {
		t.Fatal("reset must clear timestamp and notes")
	}
	if !stages.Packed.IsCompleted {
		t.Fatal("earlier stages must survive the reset")
	}

	// The reset stage can complete again on the retry leg.
	if !stages.CompleteStage(StageOutForDelivery, now.Add(time.Hour), "second attempt") {
		t.Fatal("reset stage should accept a new completion")
	}
}

func TestPickupStages(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	var stages PickupStages
	if !stages.CompleteStage(PickupStageDriverAssigned, now, "driver on the way") {
		t.Fatal("completion should apply")
	}
	if stages.CompleteStage(PickupStageDriverAssigned, now.Add(time.Hour), "") {
		t.Fatal("pickup stages are write-once too")
	}
	if stages.Stage("warp") != nil {
		t.Fatal("unknown pickup stage name should resolve to nil")
	}
}
