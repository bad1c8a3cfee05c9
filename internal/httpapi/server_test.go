package httpapi

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"careline/internal/campaign"
	"careline/internal/people"
	"careline/internal/script"
)

func TestServerHasNoWriteDeadline(t *testing.T) {
	srv := NewServer(":8080", nil)
	if srv.WriteTimeout != 0 {
		t.Fatalf("write timeout %s would reset the connection before a dispatch run finishes", srv.WriteTimeout)
	}
	if srv.ReadHeaderTimeout == 0 || srv.ReadTimeout == 0 || srv.IdleTimeout == 0 {
		t.Fatal("expected read-side and idle timeouts to be set")
	}
}

// A multi-recipient run sleeps between calls, so the response is written well
// after the request started; the aggregate must still reach the caller over a
// real connection.
func TestDispatchRunDeliversAggregateAfterDelays(t *testing.T) {
	f := newAPIFixture(t)
	f.scripts.Scripts["scr-1"] = script.CallScript{ID: "scr-1", OrgID: "org-1", Template: "Hi {Name}"}
	var members []string
	for i := 1; i <= 4; i++ {
		id := fmt.Sprintf("p-%d", i)
		f.dir.People[id] = people.Person{ID: id, OrgID: "org-1", FirstName: "Ann", Phone: fmt.Sprintf("555123000%d", i)}
		members = append(members, id)
	}
	f.dir.Groups["grp-1"] = members

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := NewServer(ln.Addr().String(), f.router)
	go srv.Serve(ln)
	defer srv.Close()

	body := `{"name":"welcome","script_id":"scr-1","target":{"kind":"group","id":"grp-1"}}`
	req, err := http.NewRequest(http.MethodPost, "http://"+ln.Addr().String()+"/v1/campaigns/calls", strings.NewReader(body))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.token(t, "pastor"))

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d, want 200", resp.StatusCode)
	}

	var res campaign.StartResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Scheduled != 4 || res.Failed != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
}
