package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/mentorbro/core"
	"github.com/trezcool/mentorbro/core/review"
)

type (
	reReviewDoc struct {
		FineAmount  primitive.Decimal128 `bson:"fineAmount"`
		PaymentDate *time.Time           `bson:"paymentDate"`
		Proof       *string              `bson:"proof"`
	}

	reviewDoc struct {
		ID          primitive.ObjectID  `bson:"_id"`
		Student     primitive.ObjectID  `bson:"student"`
		Program     *primitive.ObjectID `bson:"program"`
		ProgramTask *primitive.ObjectID `bson:"programTask"`
		Reviewer    *primitive.ObjectID `bson:"reviewer"`

		ScheduledDate       time.Time  `bson:"scheduledDate"`
		ScheduledTime       string     `bson:"scheduledTime"`
		SecondScheduledDate *time.Time `bson:"secondScheduledDate"`
		SecondScheduledTime *string    `bson:"secondScheduledTime"`
		ConfirmedTime       *string    `bson:"confirmedTime"`

		ScoreInTheory        *float64 `bson:"scoreInTheory"`
		ScoreInPractical     *float64 `bson:"scoreInPractical"`
		ReviewStatus         *string  `bson:"reviewStatus"`
		PracticalImprovement string   `bson:"practicalImprovement"`
		TheoryImprovement    string   `bson:"theoryImprovement"`
		PendingTasks         []string `bson:"pendingTasks"`

		IsReviewCompleted bool    `bson:"isReviewCompleted"`
		IsCancelled       bool    `bson:"isCancelled"`
		CancelReason      *string `bson:"cancelReason"`
		IsActive          bool    `bson:"isActive"`
		IsReReview        bool    `bson:"isReReview"`

		PaymentAmount      primitive.Decimal128 `bson:"paymentAmount"`
		IsPaymentOrderd    bool                 `bson:"isPaymentOrderd"`
		IsPaymentCompleted bool                 `bson:"isPaymentCompleted"`
		ReReviewDetails    reReviewDoc          `bson:"re_reviewDetails"`

		IsReminderSent bool       `bson:"isReminderSent"`
		EndDate        *time.Time `bson:"endDate"`
		EndTime        *string    `bson:"endTime"`
		CreatedAt      time.Time  `bson:"createdAt"`
		UpdatedAt      time.Time  `bson:"updatedAt"`
	}
)

type reviewRepository struct {
	coll *mongo.Collection
}

var _ review.Repository = (*reviewRepository)(nil)

func NewReviewRepository(db *mongo.Database) *reviewRepository {
	return &reviewRepository{coll: db.Collection(reviewCollection)}
}

func (repo reviewRepository) toDoc(r review.TaskReview) reviewDoc {
	doc := reviewDoc{
		Program:              refID(r.ProgramID),
		ProgramTask:          refID(r.ProgramTaskID),
		Reviewer:             refID(r.ReviewerID),
		ScheduledDate:        r.ScheduledDate.UTC(),
		ScheduledTime:        r.ScheduledTime,
		SecondScheduledDate:  timePtr(r.SecondScheduledDate),
		SecondScheduledTime:  stringPtr(r.SecondScheduledTime),
		ConfirmedTime:        stringPtr(r.ConfirmedTime),
		ScoreInTheory:        float64Ptr(r.ScoreInTheory),
		ScoreInPractical:     float64Ptr(r.ScoreInPractical),
		ReviewStatus:         stringPtr(r.ReviewStatus),
		PracticalImprovement: r.PracticalImprovement,
		TheoryImprovement:    r.TheoryImprovement,
		PendingTasks:         emptyIfNil(r.PendingTasks),
		IsReviewCompleted:    r.IsReviewCompleted,
		IsCancelled:          r.IsCancelled,
		CancelReason:         stringPtr(r.CancelReason),
		IsActive:             r.IsActive,
		IsReReview:           r.IsReReview,
		PaymentAmount:        toDecimal128(r.PaymentAmount),
		IsPaymentOrderd:      r.IsPaymentOrderd,
		IsPaymentCompleted:   r.IsPaymentCompleted,
		ReReviewDetails: reReviewDoc{
			FineAmount:  toDecimal128(r.ReReviewDetails.FineAmount),
			PaymentDate: timePtr(r.ReReviewDetails.PaymentDate),
			Proof:       stringPtr(r.ReReviewDetails.Proof),
		},
		IsReminderSent: r.IsReminderSent,
		EndDate:        timePtr(r.EndDate),
		EndTime:        stringPtr(r.EndTime),
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
	if oid, ok := objectID(r.ID); ok {
		doc.ID = oid
	}
	if oid, ok := objectID(r.StudentID); ok {
		doc.Student = oid
	}
	return doc
}

func (repo reviewRepository) fromDoc(doc reviewDoc) review.TaskReview {
	return review.TaskReview{
		ID:                   doc.ID.Hex(),
		StudentID:            hexID(&doc.Student),
		ProgramID:            hexID(doc.Program),
		ProgramTaskID:        hexID(doc.ProgramTask),
		ReviewerID:           hexID(doc.Reviewer),
		ScheduledDate:        doc.ScheduledDate,
		ScheduledTime:        doc.ScheduledTime,
		SecondScheduledDate:  null.TimeFromPtr(doc.SecondScheduledDate),
		SecondScheduledTime:  null.StringFromPtr(doc.SecondScheduledTime),
		ConfirmedTime:        null.StringFromPtr(doc.ConfirmedTime),
		ScoreInTheory:        null.Float64FromPtr(doc.ScoreInTheory),
		ScoreInPractical:     null.Float64FromPtr(doc.ScoreInPractical),
		ReviewStatus:         null.StringFromPtr(doc.ReviewStatus),
		PracticalImprovement: doc.PracticalImprovement,
		TheoryImprovement:    doc.TheoryImprovement,
		PendingTasks:         emptyIfNil(doc.PendingTasks),
		IsReviewCompleted:    doc.IsReviewCompleted,
		IsCancelled:          doc.IsCancelled,
		CancelReason:         null.StringFromPtr(doc.CancelReason),
		IsActive:             doc.IsActive,
		IsReReview:           doc.IsReReview,
		PaymentAmount:        fromDecimal128(doc.PaymentAmount),
		IsPaymentOrderd:      doc.IsPaymentOrderd,
		IsPaymentCompleted:   doc.IsPaymentCompleted,
		ReReviewDetails: review.ReReviewDetails{
			FineAmount:  fromDecimal128(doc.ReReviewDetails.FineAmount),
			PaymentDate: null.TimeFromPtr(doc.ReReviewDetails.PaymentDate),
			Proof:       null.StringFromPtr(doc.ReReviewDetails.Proof),
		},
		IsReminderSent: doc.IsReminderSent,
		EndDate:        null.TimeFromPtr(doc.EndDate),
		EndTime:        null.StringFromPtr(doc.EndTime),
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}
}

func (repo reviewRepository) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]review.TaskReview, error) {
	cur, err := repo.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "finding reviews")
	}
	var docs []reviewDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding reviews")
	}
	reviews := make([]review.TaskReview, 0, len(docs))
	for _, doc := range docs {
		reviews = append(reviews, repo.fromDoc(doc))
	}
	return reviews, nil
}

func (repo reviewRepository) CreateReview(ctx context.Context, r review.TaskReview) (review.TaskReview, error) {
	if _, ok := objectID(r.StudentID); !ok {
		return review.TaskReview{}, errors.New("invalid student id")
	}
	doc := repo.toDoc(r)
	doc.ID = primitive.NewObjectID()
	if _, err := repo.coll.InsertOne(ctx, doc); err != nil {
		return review.TaskReview{}, errors.Wrap(err, "inserting review")
	}
	return repo.fromDoc(doc), nil
}

func (repo reviewRepository) GetReview(ctx context.Context, id string) (review.TaskReview, error) {
	oid, ok := objectID(id)
	if !ok {
		return review.TaskReview{}, review.ErrNotFound
	}
	var doc reviewDoc
	if err := repo.coll.FindOne(ctx, bson.M{"_id": oid, "isActive": true}).Decode(&doc); err != nil {
		return review.TaskReview{}, trapNoDocsErr(err, review.ErrNotFound, "getting review")
	}
	return repo.fromDoc(doc), nil
}

func (repo reviewRepository) UpdateReview(ctx context.Context, r review.TaskReview) (review.TaskReview, error) {
	oid, ok := objectID(r.ID)
	if !ok {
		return review.TaskReview{}, review.ErrNotFound
	}
	update, err := setFields(repo.toDoc(r), "isReminderSent", "createdAt")
	if err != nil {
		return review.TaskReview{}, errors.Wrap(err, "encoding review")
	}

	var doc reviewDoc
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err = repo.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		return review.TaskReview{}, trapNoDocsErr(err, review.ErrNotFound, "updating review")
	}
	return repo.fromDoc(doc), nil
}

// queryFilter returns false if the filter cannot match anything.
func (repo reviewRepository) queryFilter(filter review.QueryFilter) (bson.M, bool) {
	q := bson.M{"isActive": true}
	for field, id := range map[string]string{
		"student":  filter.StudentID,
		"reviewer": filter.ReviewerID,
		"program":  filter.ProgramID,
	} {
		if id == "" {
			continue
		}
		oid, ok := objectID(id)
		if !ok {
			return nil, false
		}
		q[field] = oid
	}
	if filter.Unassigned {
		q["reviewer"] = nil
	}
	if filter.IsReviewCompleted != nil {
		q["isReviewCompleted"] = *filter.IsReviewCompleted
	}
	if filter.ReviewStatus != "" {
		q["reviewStatus"] = filter.ReviewStatus
	}
	return q, true
}

func (repo reviewRepository) QueryReviews(
	ctx context.Context,
	filter review.QueryFilter,
	ordering []core.DBOrdering,
	page core.Page,
) ([]review.TaskReview, int, error) {
	q, ok := repo.queryFilter(filter)
	if !ok {
		return []review.TaskReview{}, 0, nil
	}

	total, err := repo.coll.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, errors.Wrap(err, "counting reviews")
	}

	sort := bson.D{}
	seen := make(map[string]bool)
	for _, ord := range ordering {
		if seen[ord.Field] {
			continue
		}
		seen[ord.Field] = true
		dir := -1
		if ord.Ascending {
			dir = 1
		}
		sort = append(sort, bson.E{Key: ord.Field, Value: dir})
	}
	if !seen["createdAt"] {
		sort = append(sort, bson.E{Key: "createdAt", Value: -1})
	}

	opts := options.Find().
		SetSort(sort).
		SetSkip(int64(page.Offset())).
		SetLimit(int64(page.Limit))
	reviews, err := repo.find(ctx, q, opts)
	if err != nil {
		return nil, 0, err
	}
	return reviews, int(total), nil
}

func (repo reviewRepository) FindTaskReviews(ctx context.Context, studentID, programTaskID string) ([]review.TaskReview, error) {
	student, ok1 := objectID(studentID)
	task, ok2 := objectID(programTaskID)
	if !ok1 || !ok2 {
		return []review.TaskReview{}, nil
	}
	return repo.find(ctx, bson.M{
		"isActive":    true,
		"isCancelled": bson.M{"$ne": true},
		"student":     student,
		"programTask": task,
	}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

func (repo reviewRepository) LastCompletedReview(ctx context.Context, studentID string) (review.TaskReview, error) {
	student, ok := objectID(studentID)
	if !ok {
		return review.TaskReview{}, review.ErrNotFound
	}
	var doc reviewDoc
	opts := options.FindOne().SetSort(bson.D{{Key: "endDate", Value: -1}, {Key: "updatedAt", Value: -1}})
	err := repo.coll.FindOne(ctx, bson.M{
		"isActive":          true,
		"isReviewCompleted": true,
		"isCancelled":       bson.M{"$ne": true},
		"student":           student,
	}, opts).Decode(&doc)
	if err != nil {
		return review.TaskReview{}, trapNoDocsErr(err, review.ErrNotFound, "getting last completed review")
	}
	return repo.fromDoc(doc), nil
}

func pendingFilter() bson.M {
	return bson.M{
		"isActive":          true,
		"isCancelled":       bson.M{"$ne": true},
		"isReviewCompleted": bson.M{"$ne": true},
	}
}

func (repo reviewRepository) FindScheduled(ctx context.Context, filter review.ScheduleFilter) ([]review.TaskReview, error) {
	q := pendingFilter()
	q["scheduledDate"] = bson.M{"$gte": filter.From.UTC(), "$lte": filter.To.UTC()}
	if filter.OnlyUnreminded {
		q["isReminderSent"] = bson.M{"$ne": true}
	}
	return repo.find(ctx, q, options.Find().SetSort(bson.D{{Key: "scheduledDate", Value: 1}}))
}

func (repo reviewRepository) FindOpenByProgramTask(ctx context.Context, programTaskID string) ([]review.TaskReview, error) {
	q := pendingFilter()
	if programTaskID != "" {
		task, ok := objectID(programTaskID)
		if !ok {
			return []review.TaskReview{}, nil
		}
		q["programTask"] = task
	}
	return repo.find(ctx, q, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

func (repo reviewRepository) MarkReminderSent(ctx context.Context, id string) (bool, error) {
	oid, ok := objectID(id)
	if !ok {
		return false, review.ErrNotFound
	}
	res, err := repo.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "isActive": true, "isReminderSent": bson.M{"$ne": true}},
		bson.M{"$set": bson.M{"isReminderSent": true}},
	)
	if err != nil {
		return false, errors.Wrap(err, "marking reminder sent")
	}
	if res.ModifiedCount > 0 {
		return true, nil
	}

	n, err := repo.coll.CountDocuments(ctx, bson.M{"_id": oid, "isActive": true})
	if err != nil {
		return false, errors.Wrap(err, "checking review")
	}
	if n == 0 {
		return false, review.ErrNotFound
	}
	return false, nil
}

func (repo reviewRepository) AdminStats(ctx context.Context, filter review.AdminStatsFilter) (review.AdminStats, error) {
	match := bson.M{"isActive": true, "isCancelled": bson.M{"$ne": true}}
	if filter.From != nil || filter.To != nil {
		date := bson.M{}
		if filter.From != nil {
			date["$gte"] = filter.From.UTC()
		}
		if filter.To != nil {
			date["$lte"] = filter.To.UTC()
		}
		match["scheduledDate"] = date
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$facet", Value: bson.M{
			"completed": bson.A{
				bson.M{"$match": bson.M{"isReviewCompleted": true}},
				bson.M{"$count": "n"},
			},
			"unassigned": bson.A{
				bson.M{"$match": bson.M{"isReviewCompleted": bson.M{"$ne": true}, "reviewer": nil}},
				bson.M{"$count": "n"},
			},
			"pending": bson.A{
				bson.M{"$match": bson.M{"isReviewCompleted": true, "isPaymentCompleted": bson.M{"$ne": true}}},
				bson.M{"$group": bson.M{
					"_id":    nil,
					"amount": bson.M{"$sum": "$paymentAmount"},
					"count":  bson.M{"$sum": 1},
				}},
			},
		}}},
	}

	cur, err := repo.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return review.AdminStats{}, errors.Wrap(err, "aggregating admin stats")
	}
	type count struct {
		N int `bson:"n"`
	}
	var res []struct {
		Completed  []count `bson:"completed"`
		Unassigned []count `bson:"unassigned"`
		Pending    []struct {
			Amount primitive.Decimal128 `bson:"amount"`
			Count  int                  `bson:"count"`
		} `bson:"pending"`
	}
	if err = cur.All(ctx, &res); err != nil {
		return review.AdminStats{}, errors.Wrap(err, "decoding admin stats")
	}

	stats := review.AdminStats{PendingPayment: review.PendingPayment{Amount: decimal.Zero}}
	if len(res) == 0 {
		return stats, nil
	}
	if len(res[0].Completed) > 0 {
		stats.TotalCompletedReviews = res[0].Completed[0].N
	}
	if len(res[0].Unassigned) > 0 {
		stats.TotalUnassignedReviews = res[0].Unassigned[0].N
	}
	if len(res[0].Pending) > 0 {
		stats.PendingPayment.Amount = fromDecimal128(res[0].Pending[0].Amount)
		stats.PendingPayment.Count = res[0].Pending[0].Count
	}
	return stats, nil
}

func (repo reviewRepository) DailyEarnings(ctx context.Context, reviewerID string, from, to time.Time) ([]review.DailyEarning, error) {
	reviewer, ok := objectID(reviewerID)
	if !ok {
		return []review.DailyEarning{}, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"isActive":           true,
			"isPaymentCompleted": true,
			"reviewer":           reviewer,
			"endDate":            bson.M{"$gte": from.UTC(), "$lte": to.UTC()},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{"$dateToString": bson.M{
				"format":   "%Y-%m-%d",
				"date":     "$endDate",
				"timezone": "+05:30",
			}},
			"amount": bson.M{"$sum": "$paymentAmount"},
			"count":  bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}

	cur, err := repo.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errors.Wrap(err, "aggregating daily earnings")
	}
	var res []struct {
		Date   string               `bson:"_id"`
		Amount primitive.Decimal128 `bson:"amount"`
		Count  int                  `bson:"count"`
	}
	if err = cur.All(ctx, &res); err != nil {
		return nil, errors.Wrap(err, "decoding daily earnings")
	}

	days := make([]review.DailyEarning, 0, len(res))
	for _, d := range res {
		days = append(days, review.DailyEarning{Date: d.Date, Amount: fromDecimal128(d.Amount), Count: d.Count})
	}
	return days, nil
}
