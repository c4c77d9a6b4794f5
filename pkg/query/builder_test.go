package query_test

import (
	"testing"

	"github.com/JaimeStill/loom/pkg/query"
)

func runsProjection() *query.ProjectionMap {
	return query.NewProjectionMap("public", "runs", "r").
		Project("id", "Id").
		Project("story_id", "StoryId").
		Project("phase", "Phase").
		Project("created_at", "CreatedAt")
}

func TestParseSortFields(t *testing.T) {
	fields := query.ParseSortFields("story_id,-created_at")
	if len(fields) != 2 {
		t.Fatalf("fields: got %d, want 2", len(fields))
	}
	if fields[0].Field != "story_id" || fields[0].Descending {
		t.Errorf("first field: got %+v", fields[0])
	}
	if fields[1].Field != "created_at" || !fields[1].Descending {
		t.Errorf("second field: got %+v", fields[1])
	}

	if got := query.ParseSortFields(""); got != nil {
		t.Errorf("empty input: got %v, want nil", got)
	}
	if got := query.ParseSortFields(" , "); len(got) != 0 {
		t.Errorf("blank segments: got %v, want none", got)
	}
}

func TestBuild(t *testing.T) {
	sql, args := query.NewBuilder(runsProjection()).Build()

	want := "SELECT r.id, r.story_id, r.phase, r.created_at FROM public.runs r"
	if sql != want {
		t.Errorf("sql:\ngot  %s\nwant %s", sql, want)
	}
	if len(args) != 0 {
		t.Errorf("args: got %d, want 0", len(args))
	}
}

func TestBuildWithConditions(t *testing.T) {
	phase := "suspended"
	sql, args := query.NewBuilder(runsProjection()).
		WhereEquals("Phase", phase).
		WhereContains("StoryId", &phase).
		Build()

	want := "SELECT r.id, r.story_id, r.phase, r.created_at FROM public.runs r" +
		" WHERE r.phase = $1 AND r.story_id ILIKE $2"
	if sql != want {
		t.Errorf("sql:\ngot  %s\nwant %s", sql, want)
	}
	if len(args) != 2 {
		t.Fatalf("args: got %d, want 2", len(args))
	}
	if args[1] != "%suspended%" {
		t.Errorf("contains arg: got %v", args[1])
	}
}

func TestWhereConditionsSkipNilValues(t *testing.T) {
	var phase *string
	sql, args := query.NewBuilder(runsProjection()).
		WhereEquals("Phase", phase).
		WhereContains("StoryId", nil).
		Build()

	want := "SELECT r.id, r.story_id, r.phase, r.created_at FROM public.runs r"
	if sql != want {
		t.Errorf("nil conditions should be dropped:\ngot  %s\nwant %s", sql, want)
	}
	if len(args) != 0 {
		t.Errorf("args: got %d, want 0", len(args))
	}
}

func TestBuildPage(t *testing.T) {
	sql, _ := query.NewBuilder(
		runsProjection(),
		query.SortField{Field: "CreatedAt", Descending: true},
	).BuildPage(2, 25)

	want := "SELECT r.id, r.story_id, r.phase, r.created_at FROM public.runs r" +
		" ORDER BY r.created_at DESC LIMIT 25 OFFSET 25"
	if sql != want {
		t.Errorf("sql:\ngot  %s\nwant %s", sql, want)
	}
}

func TestOrderByOverridesDefaultSort(t *testing.T) {
	sql, _ := query.NewBuilder(
		runsProjection(),
		query.SortField{Field: "CreatedAt", Descending: true},
	).OrderByFields([]query.SortField{{Field: "StoryId"}}).Build()

	want := "SELECT r.id, r.story_id, r.phase, r.created_at FROM public.runs r" +
		" ORDER BY r.story_id ASC"
	if sql != want {
		t.Errorf("sql:\ngot  %s\nwant %s", sql, want)
	}
}

func TestBuildCount(t *testing.T) {
	sql, args := query.NewBuilder(runsProjection()).
		WhereEquals("Phase", "completed").
		BuildCount()

	want := "SELECT COUNT(*) FROM public.runs r WHERE r.phase = $1"
	if sql != want {
		t.Errorf("sql:\ngot  %s\nwant %s", sql, want)
	}
	if len(args) != 1 {
		t.Errorf("args: got %d, want 1", len(args))
	}
}

func TestBuildSingle(t *testing.T) {
	sql, args := query.NewBuilder(runsProjection()).BuildSingle("Id", "abc-123")

	want := "SELECT r.id, r.story_id, r.phase, r.created_at FROM public.runs r WHERE r.id = $1"
	if sql != want {
		t.Errorf("sql:\ngot  %s\nwant %s", sql, want)
	}
	if len(args) != 1 || args[0] != "abc-123" {
		t.Errorf("args: got %v", args)
	}
}

func TestWhereSearch(t *testing.T) {
	search := "auth"
	sql, args := query.NewBuilder(runsProjection()).
		WhereSearch(&search, "StoryId", "Phase").
		Build()

	want := "SELECT r.id, r.story_id, r.phase, r.created_at FROM public.runs r" +
		" WHERE (r.story_id ILIKE $1 OR r.phase ILIKE $2)"
	if sql != want {
		t.Errorf("sql:\ngot  %s\nwant %s", sql, want)
	}
	if len(args) != 2 || args[0] != "%auth%" {
		t.Errorf("args: got %v", args)
	}
}

func TestWhereNullable(t *testing.T) {
	sql, args := query.NewBuilder(runsProjection()).
		WhereNullable("Phase", nil).
		Build()

	want := "SELECT r.id, r.story_id, r.phase, r.created_at FROM public.runs r" +
		" WHERE r.phase IS NULL"
	if sql != want {
		t.Errorf("sql:\ngot  %s\nwant %s", sql, want)
	}
	if len(args) != 0 {
		t.Errorf("args: got %d, want 0", len(args))
	}
}
