package store

import (
	"context"
	"path/filepath"
	"testing"

	"chickiegpt/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return s
}

func TestCreateConversationIDsIncrease(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var prev int64
	for i := 0; i < 5; i++ {
		id, err := s.CreateConversation(ctx, "")
		if err != nil {
			t.Fatalf("CreateConversation failed: %v", err)
		}
		if id <= prev {
			t.Fatalf("expected strictly increasing ids, got %d after %d", id, prev)
		}
		prev = id
	}
}

func TestGetConversationAbsent(t *testing.T) {
	s := newTestStore(t)

	conv, err := s.GetConversation(context.Background(), 999)
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if conv != nil {
		t.Fatalf("expected nil for unknown conversation, got %+v", conv)
	}
}

func TestSetTitleIfEmpty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateConversation(ctx, "")
	if err != nil {
		t.Fatal(err)
	}

	conv, err := s.GetConversation(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if conv.Title != "" {
		t.Fatalf("expected empty title before first message, got %q", conv.Title)
	}

	if err := s.SetTitleIfEmpty(ctx, id, "first message"); err != nil {
		t.Fatal(err)
	}
	// Second fill must be a no-op.
	if err := s.SetTitleIfEmpty(ctx, id, "second message"); err != nil {
		t.Fatal(err)
	}

	conv, err = s.GetConversation(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if conv.Title != "first message" {
		t.Fatalf("expected title %q, got %q", "first message", conv.Title)
	}
}

func TestSetTitleIfEmptySkipsTitled(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateConversation(ctx, "already titled")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetTitleIfEmpty(ctx, id, "should not win"); err != nil {
		t.Fatal(err)
	}

	conv, err := s.GetConversation(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if conv.Title != "already titled" {
		t.Fatalf("expected title untouched, got %q", conv.Title)
	}
}

func TestListConversationsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := s.CreateConversation(ctx, ""); err != nil {
			t.Fatal(err)
		}
	}

	convs, err := s.ListConversations(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 3 {
		t.Fatalf("expected 3 conversations, got %d", len(convs))
	}
	for i := 1; i < len(convs); i++ {
		if convs[i].ID >= convs[i-1].ID {
			t.Fatalf("expected newest-first order, got ids %d then %d", convs[i-1].ID, convs[i].ID)
		}
	}
}

func TestInsertMessageRejectsUnknownRole(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateConversation(ctx, "")
	if err != nil {
		t.Fatal(err)
	}

	if err := s.InsertMessage(ctx, id, "moderator", "nope"); err == nil {
		t.Fatal("expected constraint violation for unknown role")
	}
	if err := s.InsertMessage(ctx, id, domain.RoleUser, "hello"); err != nil {
		t.Fatalf("valid role rejected: %v", err)
	}
}

func seedMessages(t *testing.T, s *SQLiteStore, convID int64, contents ...string) {
	t.Helper()
	ctx := context.Background()
	for _, c := range contents {
		if err := s.InsertMessage(ctx, convID, domain.RoleUser, c); err != nil {
			t.Fatalf("seed message %q: %v", c, err)
		}
	}
}

func TestListMessagesFromStartOfHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateConversation(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	seedMessages(t, s, id, "one", "two", "three")

	// The no-BeforeID page comes from the START of history, not the end.
	msgs, err := s.ListMessages(ctx, id, MessageQuery{Limit: 2, Ascending: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "one" || msgs[1].Content != "two" {
		t.Fatalf("expected [one two], got [%s %s]", msgs[0].Content, msgs[1].Content)
	}
}

func TestListMessagesBeforeID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateConversation(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	seedMessages(t, s, id, "one", "two", "three")

	all, err := s.ListMessages(ctx, id, MessageQuery{Ascending: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(all))
	}
	third := all[2].ID

	asc, err := s.ListMessages(ctx, id, MessageQuery{Limit: 10, BeforeID: third, Ascending: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(asc) != 2 || asc[0].Content != "one" || asc[1].Content != "two" {
		t.Fatalf("ascending BeforeID page wrong: %+v", asc)
	}

	desc, err := s.ListMessages(ctx, id, MessageQuery{Limit: 10, BeforeID: third, Ascending: false})
	if err != nil {
		t.Fatal(err)
	}
	if len(desc) != 2 || desc[0].Content != "two" || desc[1].Content != "one" {
		t.Fatalf("descending BeforeID page wrong: %+v", desc)
	}
}

func TestListMessagesIsolatedByConversation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, _ := s.CreateConversation(ctx, "")
	b, _ := s.CreateConversation(ctx, "")
	seedMessages(t, s, a, "in a")
	seedMessages(t, s, b, "in b")

	msgs, err := s.ListMessages(ctx, a, MessageQuery{Ascending: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Content != "in a" {
		t.Fatalf("conversation isolation broken: %+v", msgs)
	}
}

func TestUpsertDeleteFact(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertFact(ctx, "city", "Irvine"); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertFact(ctx, "city", "Boston"); err != nil {
		t.Fatal(err)
	}

	facts, err := s.ListFacts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(facts) != 1 {
		t.Fatalf("expected exactly one fact after double upsert, got %d", len(facts))
	}
	if facts[0].Key != "city" || facts[0].Value != "Boston" {
		t.Fatalf("expected city=Boston, got %s=%s", facts[0].Key, facts[0].Value)
	}

	if err := s.DeleteFact(ctx, "city"); err != nil {
		t.Fatal(err)
	}
	facts, err = s.ListFacts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(facts) != 0 {
		t.Fatalf("expected no facts after delete, got %d", len(facts))
	}

	// Deleting an absent key is a no-op.
	if err := s.DeleteFact(ctx, "city"); err != nil {
		t.Fatalf("delete of absent key should be a no-op: %v", err)
	}
}

func TestListFactsOrderedByKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, kv := range [][2]string{{"zebra", "1"}, {"alpha", "2"}, {"mango", "3"}} {
		if err := s.UpsertFact(ctx, kv[0], kv[1]); err != nil {
			t.Fatal(err)
		}
	}

	facts, err := s.ListFacts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"alpha", "mango", "zebra"}
	if len(facts) != len(want) {
		t.Fatalf("expected %d facts, got %d", len(want), len(facts))
	}
	for i, k := range want {
		if facts[i].Key != k {
			t.Fatalf("expected key %q at %d, got %q", k, i, facts[i].Key)
		}
	}
}

func TestAllFacts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertFact(ctx, "city", "Boston"); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertFact(ctx, "university", "UCI"); err != nil {
		t.Fatal(err)
	}

	m, err := s.AllFacts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(m) != 2 || m["city"] != "Boston" || m["university"] != "UCI" {
		t.Fatalf("unexpected mapping: %v", m)
	}
}
