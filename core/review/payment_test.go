package review

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mentorbro/core"
	"github.com/trezcool/mentorbro/core/program"
)

func Test_derivePayment(t *testing.T) {
	d := decimal.NewFromInt
	task := func(cost, fine int64) *program.Task {
		return &program.Task{Week: 1, Cost: d(cost), ReReviewFineAmount: d(fine)}
	}

	tests := []struct {
		name        string
		isReReview  bool
		task        *program.Task
		wantPayment decimal.Decimal
		wantFine    decimal.Decimal
	}{
		{name: "first attempt pays cost", task: task(500, 0), wantPayment: d(500), wantFine: d(0)},
		{name: "first attempt, cost unset", task: task(0, 50), wantPayment: d(0), wantFine: d(0)},
		{name: "first attempt, no task", wantPayment: d(0), wantFine: d(0)},
		{name: "re-review, fine unset falls back to 100", isReReview: true, task: task(500, 0), wantPayment: d(500), wantFine: d(100)},
		{name: "re-review with fine", isReReview: true, task: task(500, 250), wantPayment: d(500), wantFine: d(250)},
		{name: "re-review, cost unset falls back to 120", isReReview: true, task: task(0, 0), wantPayment: d(120), wantFine: d(100)},
		{name: "re-review, no task", isReReview: true, wantPayment: d(120), wantFine: d(100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := TaskReview{IsReReview: tt.isReReview}
			derivePayment(&r, tt.task)
			assert.True(t, tt.wantPayment.Equal(r.PaymentAmount), "paymentAmount = %v, want %v", r.PaymentAmount, tt.wantPayment)
			assert.True(t, tt.wantFine.Equal(r.ReReviewDetails.FineAmount), "fineAmount = %v, want %v", r.ReReviewDetails.FineAmount, tt.wantFine)
		})
	}
}

func Test_derivePayment_resetsDetailsOnFirstAttempt(t *testing.T) {
	r := TaskReview{
		IsReReview: false,
		ReReviewDetails: ReReviewDetails{
			FineAmount:  decimal.NewFromInt(100),
			PaymentDate: null.TimeFrom(time.Now()),
			Proof:       null.StringFrom("https://proof"),
		},
	}
	derivePayment(&r, &program.Task{Cost: decimal.NewFromInt(300)})

	assert.True(t, r.ReReviewDetails.FineAmount.IsZero())
	assert.False(t, r.ReReviewDetails.PaymentDate.Valid)
	assert.False(t, r.ReReviewDetails.Proof.Valid)
	assert.True(t, decimal.NewFromInt(300).Equal(r.PaymentAmount))
}

func Test_applyReReviewInput(t *testing.T) {
	paid := core.FlexTime{Time: time.Date(2025, 1, 2, 0, 0, 0, 0, core.IST)}
	proof := "https://proof/1.png"
	empty := ""

	r := TaskReview{IsReReview: true}
	applyReReviewInput(&r, &ReReviewInput{PaymentDate: &paid, Proof: &proof})
	assert.True(t, r.ReReviewDetails.PaymentDate.Valid)
	assert.Equal(t, proof, r.ReReviewDetails.Proof.String)

	applyReReviewInput(&r, &ReReviewInput{Proof: &empty})
	assert.False(t, r.ReReviewDetails.Proof.Valid)
	assert.True(t, r.ReReviewDetails.PaymentDate.Valid, "untouched field kept")

	first := TaskReview{}
	applyReReviewInput(&first, &ReReviewInput{Proof: &proof})
	assert.False(t, first.ReReviewDetails.Proof.Valid, "ignored on first attempts")
}
