package tests

import (
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mentorbro/core/program"
)

func Test_programTaskApi(t *testing.T) {
	e := setup(t)
	path := "/v1/program-tasks"

	runHTTPTests(t, e, []httpTest{
		{name: "Auth required", method: http.MethodGet, path: path, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", method: http.MethodPost, path: path, token: e.reviewerToken, body: []byte(`{}`),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "required fields", method: http.MethodPost, path: path, token: e.adminToken, body: []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"name":    "this field is required",
				"week":    "this field is required",
				"program": "this field is required",
			}),
		},
		{
			name: "negative cost", method: http.MethodPost, path: path, token: e.adminToken,
			body:     []byte(`{"name": "Week 3", "week": 3, "program": "` + e.program.ID + `", "cost": "-1"}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"cost": "cost cannot be negative"}),
		},
		{
			name: "week taken", method: http.MethodPost, path: path, token: e.adminToken,
			body:     []byte(`{"name": "Again", "week": 1, "program": "` + e.program.ID + `"}`),
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: program.ErrDuplicateWeek.Error()}),
		},
		{
			name: "unknown task", method: http.MethodGet, path: path + "/unknown", token: e.studentToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "program task not found"}),
		},
	})

	// create
	rec := e.serve(http.MethodPost, path, e.adminToken, []byte(`{
		"name": "Week 3",
		"week": 3,
		"program": "`+e.program.ID+`",
		"tasks": ["Hooks", "Context"],
		"cost": "700",
		"re_review_fine_amount": "200"
	}`))
	assertCode(t, rec, http.StatusCreated)
	var week3 program.Task
	unmarshallObj(t, rec, &week3)
	assert.NotEmpty(t, week3.ID)
	assert.Equal(t, []string{"Hooks", "Context"}, week3.Tasks)
	assert.True(t, decimal.NewFromInt(700).Equal(week3.Cost))
	assert.True(t, week3.IsActive)

	// list, ordered by week
	rec = e.serve(http.MethodGet, path+"?program="+e.program.ID, e.studentToken)
	assertCode(t, rec, http.StatusOK)
	var tasks []program.Task
	unmarshallObj(t, rec, &tasks)
	require.Len(t, tasks, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{tasks[0].Week, tasks[1].Week, tasks[2].Week})

	// by week
	runHTTPTests(t, e, []httpTest{
		{
			name: "by week: no program", method: http.MethodGet, path: path + "/weeks/1", token: e.studentToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"program": "this field is required"}),
		},
		{
			name: "by week: bad week", method: http.MethodGet, path: path + "/weeks/one?program=" + e.program.ID, token: e.studentToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"week": "week must be a number"}),
		},
		{
			name: "by week: none", method: http.MethodGet, path: path + "/weeks/9?program=" + e.program.ID, token: e.studentToken,
			wantCode: http.StatusNotFound,
		},
	})
	rec = e.serve(http.MethodGet, path+"/weeks/3?program="+e.program.ID, e.studentToken)
	assertCode(t, rec, http.StatusOK)
	var byWeek program.Task
	unmarshallObj(t, rec, &byWeek)
	assert.Equal(t, week3.ID, byWeek.ID)

	// update
	rec = e.serve(http.MethodPut, path+"/"+week3.ID, e.adminToken, []byte(`{"week": 2}`))
	assertCode(t, rec, http.StatusConflict)

	rec = e.serve(http.MethodPut, path+"/"+week3.ID, e.adminToken, []byte(`{"name": "  React  ", "cost": "750"}`))
	assertCode(t, rec, http.StatusOK)
	unmarshallObj(t, rec, &week3)
	assert.Equal(t, "React", week3.Name)
	assert.True(t, decimal.NewFromInt(750).Equal(week3.Cost))
	assert.Equal(t, 3, week3.Week)

	// delete frees the week
	rec = e.serve(http.MethodDelete, path+"/"+e.week2.ID, e.adminToken)
	assertCode(t, rec, http.StatusNoContent)

	rec = e.serve(http.MethodPut, path+"/"+week3.ID, e.adminToken, []byte(`{"week": 2}`))
	assertCode(t, rec, http.StatusOK)

	rec = e.serve(http.MethodGet, path+"/"+e.week2.ID, e.adminToken)
	assertCode(t, rec, http.StatusOK)
	var retired program.Task
	unmarshallObj(t, rec, &retired)
	assert.False(t, retired.IsActive, "retired tasks stay readable")
}
