package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/ansuz/internal/testutil"
)

func testRouter(t *testing.T) (*httptest.Server, *testutil.Env) {
	t.Helper()
	env := testutil.NewEnv(t)
	srv := httptest.NewServer(NewRouter(env.Service, false, "", nil))
	t.Cleanup(srv.Close)
	return srv, env
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func TestListPrompts_EmptyDirectory(t *testing.T) {
	srv, _ := testRouter(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/prompts", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decode[PromptListResponse](t, resp)
	if body.Total != 0 || len(body.Prompts) != 0 {
		t.Errorf("body = %+v, want empty", body)
	}
}

func TestAddThenGetPrompt(t *testing.T) {
	srv, _ := testRouter(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/prompts", AddPromptRequest{
		Name:    "Hello World!",
		Content: "Say hello.",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add status = %d", resp.StatusCode)
	}
	added := decode[AddPromptResponse](t, resp)
	if added.Filename != "hello_world_.md" {
		t.Errorf("filename = %q", added.Filename)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/prompts/hello_world_", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	detail := decode[PromptDetail](t, resp)
	if detail.Content != "Say hello." {
		t.Errorf("content = %q", detail.Content)
	}
}

func TestGetPrompt_Metadata(t *testing.T) {
	srv, _ := testRouter(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/prompts", AddPromptRequest{
		Name:    "annotated",
		Content: "---\ndescription: has metadata\n---\nbody",
	})
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, srv.URL+"/prompts/annotated", nil)
	detail := decode[PromptDetail](t, resp)
	if detail.Metadata["description"] != "has metadata" {
		t.Errorf("metadata = %v", detail.Metadata)
	}
}

func TestGetPrompt_NotFound(t *testing.T) {
	srv, _ := testRouter(t)
	resp := doJSON(t, http.MethodGet, srv.URL+"/prompts/missing", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestAddPrompt_Validation(t *testing.T) {
	srv, _ := testRouter(t)
	resp := doJSON(t, http.MethodPost, srv.URL+"/prompts", AddPromptRequest{Name: "", Content: ""})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAddPrompt_EmptyContentAccepted(t *testing.T) {
	srv, _ := testRouter(t)
	resp := doJSON(t, http.MethodPost, srv.URL+"/prompts", AddPromptRequest{Name: "blank"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/prompts/blank", nil)
	detail := decode[PromptDetail](t, resp)
	if detail.Content != "" {
		t.Errorf("content = %q, want empty", detail.Content)
	}
}

func TestAddPrompt_OverwriteWins(t *testing.T) {
	srv, _ := testRouter(t)

	for _, content := range []string{"first", "second"} {
		resp := doJSON(t, http.MethodPost, srv.URL+"/prompts", AddPromptRequest{
			Name:    "dup",
			Content: content,
		})
		resp.Body.Close()
	}

	resp := doJSON(t, http.MethodGet, srv.URL+"/prompts/dup", nil)
	detail := decode[PromptDetail](t, resp)
	if detail.Content != "second" {
		t.Errorf("content = %q, want last write", detail.Content)
	}
}

func TestDeletePrompt(t *testing.T) {
	srv, _ := testRouter(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/prompts", AddPromptRequest{
		Name:    "doomed",
		Content: "bye",
	})
	resp.Body.Close()

	resp = doJSON(t, http.MethodDelete, srv.URL+"/prompts/doomed", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/prompts/doomed", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", resp.StatusCode)
	}
}

func TestDeletePrompt_NotFound(t *testing.T) {
	srv, _ := testRouter(t)
	resp := doJSON(t, http.MethodDelete, srv.URL+"/prompts/never-there", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestSearch(t *testing.T) {
	srv, env := testRouter(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/prompts", AddPromptRequest{
		Name:    "findable",
		Content: "an unmistakably unique needle",
	})
	resp.Body.Close()
	env.SyncIndex(t)

	resp = doJSON(t, http.MethodGet, srv.URL+"/search?q=needle", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decode[SearchResponse](t, resp)
	if len(body.Results) != 1 || body.Results[0].Name != "findable" {
		t.Errorf("results = %+v", body.Results)
	}
}

func TestSearch_MissingQuery(t *testing.T) {
	srv, _ := testRouter(t)
	resp := doJSON(t, http.MethodGet, srv.URL+"/search", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAuth_Enforced(t *testing.T) {
	env := testutil.NewEnv(t)
	srv := httptest.NewServer(NewRouter(env.Service, true, "sekrit", nil))
	t.Cleanup(srv.Close)

	resp := doJSON(t, http.MethodGet, srv.URL+"/prompts", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/prompts", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status with token = %d, want 200", resp.StatusCode)
	}
}
