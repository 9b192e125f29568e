package visits

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/fieldsales-backend/internal/data/repos/testutil"
	"github.com/yungbote/fieldsales-backend/internal/domain"
	"github.com/yungbote/fieldsales-backend/internal/platform/dbctx"
)

func TestSurveyRepos(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	log := testutil.Logger(t)
	responses := NewSurveyResponseRepo(db, log)
	answers := NewSurveyAnswerRepo(db, log)

	visit := testutil.SeedVisit(t, ctx, tx, 1, 2)
	resp := &domain.SurveyResponse{SurveyID: 4, VisitID: visit.ID, SubmittedAt: time.Now().UTC()}
	if err := responses.Create(dbc, resp); err != nil {
		t.Fatalf("Create response: %v", err)
	}
	for i, text := range []string{"yes", "no"} {
		a := text
		if err := answers.Create(dbc, &domain.SurveyAnswer{ResponseID: resp.ID, FieldID: uint(i + 1), Answer: &a}); err != nil {
			t.Fatalf("Create answer: %v", err)
		}
	}

	got, err := responses.GetByVisitID(dbc, visit.ID)
	if err != nil || len(got) != 1 {
		t.Fatalf("GetByVisitID: err=%v len=%d", err, len(got))
	}
	rows, err := answers.GetByResponseIDs(dbc, []uint{resp.ID})
	if err != nil || len(rows) != 2 {
		t.Fatalf("GetByResponseIDs: err=%v len=%d", err, len(rows))
	}
	if err := answers.UpdateFields(dbc, rows[0].ID, map[string]interface{}{"answer": "maybe"}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	a, _ := answers.GetByID(dbc, rows[0].ID)
	if a.Answer == nil || *a.Answer != "maybe" {
		t.Fatalf("UpdateFields: answer=%v", a.Answer)
	}
}
