package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestStoreCreateAndGet(t *testing.T) {
	s := NewStore()
	id := s.Create()

	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("session id %q is not a uuid: %v", id, err)
	}
	st, ok := s.Get(id)
	if !ok {
		t.Fatal("created session not found")
	}
	if st.Page != PageHome || st.LoggedIn {
		t.Fatalf("new session state = %+v", st)
	}
	if _, ok := s.Get("unknown"); ok {
		t.Fatal("unknown id reported as present")
	}
}

func TestStoreUpdate(t *testing.T) {
	s := NewStore()
	id := s.Create()

	err := s.Update(id, func(st State) (State, error) {
		st.Page = PageLogin
		return st, nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if st, _ := s.Get(id); st.Page != PageLogin {
		t.Fatalf("page = %s", st.Page)
	}

	boom := errors.New("boom")
	err = s.Update(id, func(st State) (State, error) {
		st.Page = PageMentor
		return st, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if st, _ := s.Get(id); st.Page != PageLogin {
		t.Fatalf("failed update was stored: %s", st.Page)
	}
}

func TestStoreTakeNotices(t *testing.T) {
	s := NewStore()
	id := s.Create()
	_ = s.Update(id, func(st State) (State, error) {
		st.notify(LevelInfo, "hello")
		return st, nil
	})

	notices := s.TakeNotices(id)
	if len(notices) != 1 || notices[0].Text != "hello" {
		t.Fatalf("notices = %+v", notices)
	}
	if again := s.TakeNotices(id); len(again) != 0 {
		t.Fatalf("notices not cleared: %+v", again)
	}
}

func TestStoreSessionsAreIsolated(t *testing.T) {
	s := NewStore()

	var wg sync.WaitGroup
	ids := make([]string, 20)
	for i := range ids {
		ids[i] = s.Create()
	}
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_ = s.Update(id, func(st State) (State, error) {
				st.Username = id
				st.LoggedIn = i%2 == 0
				return st, nil
			})
		}(i, id)
	}
	wg.Wait()

	for i, id := range ids {
		st, _ := s.Get(id)
		if st.Username != id || st.LoggedIn != (i%2 == 0) {
			t.Fatalf("session %d = %+v", i, st)
		}
	}
}
