package providers_test

import (
	"azdoexport/internal/export"
	"azdoexport/internal/fetcher"
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestBehaviorsFetcher_ResolvesProcessFromProject(t *testing.T) {
	f := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/_apis/projects/Fabrikam":
			fmt.Fprint(w, `{"id": "proj-1", "name": "Fabrikam",
				"capabilities": {"processTemplate": {"templateTypeId": "proc-123", "templateName": "Agile"}}}`)
		case "/_apis/work/processes/proc-123/behaviors":
			fmt.Fprint(w, `{"count": 2, "value": [
				{"name": "Epics", "referenceName": "Microsoft.VSTS.Scrum.EpicBacklogBehavior", "description": "Epic backlog",
					"inherits": {"behaviorRefName": "System.PortfolioBacklogBehavior"}},
				{"name": "Ordered", "referenceName": "System.OrderedBehavior", "abstract": true}
			]}`)
		default:
			http.NotFound(w, r)
		}
	}))

	payload, err := resolveAdapter(t, fetcher.ClassBehaviors).Fetch(context.Background(), f)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	behaviors, ok := payload.([]export.Behavior)
	if !ok {
		t.Fatalf("payload type = %T, want []export.Behavior", payload)
	}

	if len(behaviors) != 2 {
		t.Fatalf("got %d behaviors, want 2", len(behaviors))
	}
	if behaviors[0].Inherits != "System.PortfolioBacklogBehavior" {
		t.Errorf("Inherits = %q, want the flattened behaviorRefName", behaviors[0].Inherits)
	}
	if !behaviors[1].Abstract || behaviors[1].Inherits != "" {
		t.Errorf("behaviors[1] = %+v", behaviors[1])
	}
}

func TestBehaviorsFetcher_MissingProcessTemplate(t *testing.T) {
	f := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "proj-1", "name": "Fabrikam"}`)
	}))

	_, err := resolveAdapter(t, fetcher.ClassBehaviors).Fetch(context.Background(), f)
	if err == nil || !strings.Contains(err.Error(), "no process template id") {
		t.Fatalf("err = %v, want the missing-template error", err)
	}
}
