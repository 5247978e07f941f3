package review

import (
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mentorbro/core/program"
)

// derivePayment sets paymentAmount and the re-review details from the program task.
// task is nil when the review does not reference one.
//
// First attempts pay the task cost (0 if unset).
// Re-reviews carry the task fine (100 if unset) in their details and pay the task cost (120 if unset).
func derivePayment(r *TaskReview, task *program.Task) {
	var cost, fine decimal.Decimal
	if task != nil {
		cost, fine = task.Cost, task.ReReviewFineAmount
	}

	if !r.IsReReview {
		r.PaymentAmount = cost
		r.ReReviewDetails = ReReviewDetails{FineAmount: decimal.Zero}
		return
	}

	if fine.IsPositive() {
		r.ReReviewDetails.FineAmount = fine
	} else {
		r.ReReviewDetails.FineAmount = defaultReReviewFine
	}
	if cost.IsPositive() {
		r.PaymentAmount = cost
	} else {
		r.PaymentAmount = defaultReReviewCost
	}
}

// applyReReviewInput merges the payment date & proof of a re-review. Ignored on first attempts.
func applyReReviewInput(r *TaskReview, in *ReReviewInput) {
	if in == nil || !r.IsReReview {
		return
	}
	if in.PaymentDate != nil {
		if in.PaymentDate.IsZero() {
			r.ReReviewDetails.PaymentDate = null.Time{}
		} else {
			r.ReReviewDetails.PaymentDate = null.TimeFrom(in.PaymentDate.UTC())
		}
	}
	if in.Proof != nil {
		if *in.Proof == "" {
			r.ReReviewDetails.Proof = null.String{}
		} else {
			r.ReReviewDetails.Proof = null.StringFrom(*in.Proof)
		}
	}
}
