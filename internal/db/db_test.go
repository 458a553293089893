package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

// setupTestDB opens a fresh snapshot database in a temp dir.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := OpenDB(filepath.Join(t.TempDir(), "snapshot.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func testSnapshot() Snapshot {
	return Snapshot{
		Run: Run{ID: "run-1", CreatedAt: 1000, DataDir: "data", Persons: 3, Links: 2},
		Persons: []Person{
			{ID: "jane-roe", Name: "Jane Roe", InNetwork: true, Flights: 2, Connections: 1},
			{ID: "john-doe", Name: "John Doe", Nationality: "American", InBlackBook: true, InNetwork: true,
				Flights: 3, Connections: 2, Aliases: []string{"Doe, John", "John Doe", "Johnny Doe"}},
			{ID: "zed-poe", Name: "Zed Poe", InNetwork: true, Connections: 1},
		},
		Images: []Image{{PersonID: "john-doe", Path: "img/b.jpg"}, {PersonID: "john-doe", Path: "img/a.jpg", Category: "portrait"}},
		Links: []Link{
			{SourceID: "jane-roe", TargetID: "john-doe", Weight: 3, Types: []string{"associate"}, Sources: []string{"relationships/a.csv:2"}},
			{SourceID: "john-doe", TargetID: "zed-poe", Weight: 1},
		},
	}
}

func TestWriteSnapshot_RoundTrip(t *testing.T) {
	d := setupTestDB(t)
	id, err := d.WriteSnapshot(context.Background(), testSnapshot())
	if err != nil {
		t.Fatal(err)
	}
	if id != "run-1" {
		t.Errorf("run id = %q, want run-1", id)
	}

	persons, err := d.AllPersons()
	if err != nil {
		t.Fatal(err)
	}
	if len(persons) != 3 || persons[0].ID != "jane-roe" || persons[2].ID != "zed-poe" {
		t.Fatalf("unexpected persons: %+v", persons)
	}

	p, err := d.GetPerson("john-doe")
	if err != nil {
		t.Fatal(err)
	}
	if !p.InBlackBook || p.Flights != 3 || p.Nationality != "American" {
		t.Errorf("unexpected person: %+v", p)
	}
	wantAliases := []string{"Doe, John", "John Doe", "Johnny Doe"}
	if !reflect.DeepEqual(p.Aliases, wantAliases) {
		t.Errorf("aliases = %v, want %v", p.Aliases, wantAliases)
	}

	images, err := d.ImagesFor("john-doe")
	if err != nil {
		t.Fatal(err)
	}
	if len(images) != 2 || images[0].Path != "img/a.jpg" || images[0].Category != "portrait" {
		t.Errorf("unexpected images: %+v", images)
	}

	links, err := d.AllLinks()
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(links))
	}
	if links[0].Weight != 3 || !reflect.DeepEqual(links[0].Sources, []string{"relationships/a.csv:2"}) {
		t.Errorf("unexpected first link: %+v", links[0])
	}
	if links[1].Types == nil || len(links[1].Types) != 0 {
		t.Errorf("empty types should decode to an empty slice, got %#v", links[1].Types)
	}
}

func TestWriteSnapshot_ReplacesPrevious(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	if _, err := d.WriteSnapshot(ctx, testSnapshot()); err != nil {
		t.Fatal(err)
	}

	next := Snapshot{
		Run:     Run{CreatedAt: 2000, DataDir: "data"},
		Persons: []Person{{ID: "ann-lee", Name: "Ann Lee"}},
	}
	id, err := d.WriteSnapshot(ctx, next)
	if err != nil {
		t.Fatal(err)
	}
	if id == "" || id == "run-1" {
		t.Errorf("expected a generated run id, got %q", id)
	}

	persons, err := d.AllPersons()
	if err != nil {
		t.Fatal(err)
	}
	if len(persons) != 1 || persons[0].ID != "ann-lee" {
		t.Errorf("expected only ann-lee, got %+v", persons)
	}
	links, err := d.AllLinks()
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 0 {
		t.Errorf("expected no links, got %d", len(links))
	}

	run, err := d.LatestRun()
	if err != nil {
		t.Fatal(err)
	}
	if run == nil || run.ID != id {
		t.Errorf("latest run = %+v, want %s", run, id)
	}
}

func TestWriteSnapshot_RollsBackOnError(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	if _, err := d.WriteSnapshot(ctx, testSnapshot()); err != nil {
		t.Fatal(err)
	}

	bad := Snapshot{
		Persons: []Person{{ID: "ann-lee", Name: "Ann Lee"}},
		Links:   []Link{{SourceID: "ann-lee", TargetID: "nobody", Weight: 1}},
	}
	if _, err := d.WriteSnapshot(ctx, bad); err == nil {
		t.Fatal("expected foreign key error")
	}

	persons, err := d.AllPersons()
	if err != nil {
		t.Fatal(err)
	}
	if len(persons) != 3 {
		t.Errorf("previous snapshot should survive, got %d persons", len(persons))
	}
}

func TestLatestRun_Empty(t *testing.T) {
	d := setupTestDB(t)
	run, err := d.LatestRun()
	if err != nil {
		t.Fatal(err)
	}
	if run != nil {
		t.Errorf("expected nil run, got %+v", run)
	}
}

func TestGetPerson_NotFound(t *testing.T) {
	d := setupTestDB(t)
	_, err := d.GetPerson("nobody")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestStrongestLinks(t *testing.T) {
	d := setupTestDB(t)
	if _, err := d.WriteSnapshot(context.Background(), testSnapshot()); err != nil {
		t.Fatal(err)
	}

	links, err := d.StrongestLinks("john-doe", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 1 {
		t.Fatalf("expected 1 link, got %d", len(links))
	}
	if links[0].Other("john-doe") != "jane-roe" {
		t.Errorf("strongest neighbor = %s, want jane-roe", links[0].Other("john-doe"))
	}

	all, err := d.StrongestLinks("john-doe", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[1].Other("john-doe") != "zed-poe" {
		t.Errorf("unexpected links: %+v", all)
	}
}

func TestSearchByIDPrefix(t *testing.T) {
	d := setupTestDB(t)
	if _, err := d.WriteSnapshot(context.Background(), testSnapshot()); err != nil {
		t.Fatal(err)
	}
	got, err := d.SearchByIDPrefix("j", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "jane-roe" || got[1].ID != "john-doe" {
		t.Errorf("unexpected matches: %+v", got)
	}
}

func TestSearchPersons_ByAlias(t *testing.T) {
	d := setupTestDB(t)
	if _, err := d.WriteSnapshot(context.Background(), testSnapshot()); err != nil {
		t.Fatal(err)
	}

	got, err := d.SearchPersons("johnny", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "john-doe" {
		t.Errorf("unexpected matches: %+v", got)
	}

	got, err = d.SearchPersons("the", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("stopword-only query should match nothing, got %+v", got)
	}
}

func TestNetworkPersons(t *testing.T) {
	d := setupTestDB(t)
	s := testSnapshot()
	s.Persons = append(s.Persons, Person{ID: "ann-lee", Name: "Ann Lee"})
	if _, err := d.WriteSnapshot(context.Background(), s); err != nil {
		t.Fatal(err)
	}
	got, err := d.NetworkPersons()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("expected 3 network persons, got %d", len(got))
	}
}
