/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package githubtest provides an in-memory GitHub API for tests. It serves
// the subset of REST and GraphQL endpoints prlint uses and records every
// mutating call for inspection.
package githubtest

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/google/go-github/v84/github"
	"github.com/shurcooL/githubv4"
)

// CheckRun is the recorded history of one check run.
type CheckRun struct {
	ID      int64
	Create  github.CreateCheckRunOptions
	Updates []github.UpdateCheckRunOptions
}

// Write is a recorded create-or-update of file contents.
type Write struct {
	Path    string
	Branch  string
	Message string
	SHA     string
	Content []byte
}

type blob struct {
	content []byte
	sha     string
}

// Head is the pull request head returned by the GraphQL endpoint.
type Head struct {
	Ref string
	SHA string
}

// Fake is an in-memory GitHub serving one repository.
type Fake struct {
	Owner string
	Repo  string

	server *httptest.Server

	mu        sync.Mutex
	files     map[int][]*github.CommitFile
	heads     map[int]Head
	checkRuns []*CheckRun
	contents  map[string]map[string]blob
	writes    []Write
	conflicts map[string]bool
	failures  map[string]int
}

// New starts a Fake for owner/repo; the server is closed with the test.
func New(t *testing.T, owner, repo string) *Fake {
	t.Helper()
	f := &Fake{
		Owner:     owner,
		Repo:      repo,
		files:     make(map[int][]*github.CommitFile),
		heads:     make(map[int]Head),
		contents:  make(map[string]map[string]blob),
		conflicts: make(map[string]bool),
		failures:  make(map[string]int),
	}

	mux := http.NewServeMux()
	prefix := "/repos/" + owner + "/" + repo
	mux.HandleFunc("GET "+prefix+"/pulls/{number}/files", f.listFiles)
	mux.HandleFunc("POST "+prefix+"/check-runs", f.createCheckRun)
	mux.HandleFunc("PATCH "+prefix+"/check-runs/{id}", f.updateCheckRun)
	mux.HandleFunc("GET "+prefix+"/contents/{path...}", f.getContents)
	mux.HandleFunc("PUT "+prefix+"/contents/{path...}", f.putContents)
	mux.HandleFunc("POST /graphql", f.graphql)

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

// Client returns a REST client pointed at the Fake.
func (f *Fake) Client() *github.Client {
	c := github.NewClient(f.server.Client())
	u, _ := url.Parse(f.server.URL + "/")
	c.BaseURL = u
	c.UploadURL = u
	return c
}

// GraphQLClient returns a GraphQL client pointed at the Fake.
func (f *Fake) GraphQLClient() *githubv4.Client {
	return githubv4.NewEnterpriseClient(f.server.URL+"/graphql", f.server.Client())
}

// SetFiles sets the change set of pull request number.
func (f *Fake) SetFiles(number int, files ...*github.CommitFile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[number] = files
}

// File is shorthand for a CommitFile.
func File(name, status string) *github.CommitFile {
	return &github.CommitFile{Filename: github.Ptr(name), Status: github.Ptr(status)}
}

// SetHead sets the head returned for pull request number.
func (f *Fake) SetHead(number int, h Head) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heads[number] = h
}

// SetContent stores path on ref.
func (f *Fake) SetContent(ref, path string, content []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putLocked(ref, path, content)
}

// Content returns the stored bytes of path on ref.
func (f *Fake) Content(ref, path string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.contents[ref][path]
	return b.content, ok
}

// ConflictOn makes every write to path fail with 409 Conflict.
func (f *Fake) ConflictOn(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conflicts[path] = true
}

// FailNext makes the next n requests matching "METHOD /path" fail with 500.
func (f *Fake) FailNext(route string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[route] = n
}

// CheckRuns returns the recorded check runs in creation order.
func (f *Fake) CheckRuns() []*CheckRun {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*CheckRun, len(f.checkRuns))
	copy(out, f.checkRuns)
	return out
}

// Writes returns the recorded content writes in order.
func (f *Fake) Writes() []Write {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Write, len(f.writes))
	copy(out, f.writes)
	return out
}

// BlobSHA computes the git blob hash GitHub reports for content.
func BlobSHA(content []byte) string {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(content))
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

func (f *Fake) putLocked(ref, path string, content []byte) string {
	if f.contents[ref] == nil {
		f.contents[ref] = make(map[string]blob)
	}
	sha := BlobSHA(content)
	f.contents[ref][path] = blob{content: append([]byte(nil), content...), sha: sha}
	return sha
}

// injectFailure reports whether the request should fail, consuming one
// configured failure.
func (f *Fake) injectFailure(w http.ResponseWriter, r *http.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := r.Method + " " + r.URL.Path
	if f.failures[key] == 0 {
		return false
	}
	f.failures[key]--
	writeError(w, http.StatusInternalServerError, "injected failure")
	return true
}

func (f *Fake) listFiles(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage <= 0 {
		perPage = 30
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}

	f.mu.Lock()
	all := f.files[number]
	f.mu.Unlock()

	start := min((page-1)*perPage, len(all))
	end := min(start+perPage, len(all))
	if end < len(all) {
		next := *r.URL
		q := next.Query()
		q.Set("page", strconv.Itoa(page+1))
		q.Set("per_page", strconv.Itoa(perPage))
		next.RawQuery = q.Encode()
		w.Header().Set("Link", fmt.Sprintf(`<%s%s>; rel="next"`, f.server.URL, next.RequestURI()))
	}
	writeJSON(w, http.StatusOK, all[start:end])
}

func (f *Fake) createCheckRun(w http.ResponseWriter, r *http.Request) {
	if f.injectFailure(w, r) {
		return
	}
	var opts github.CreateCheckRunOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	f.mu.Lock()
	run := &CheckRun{ID: int64(len(f.checkRuns) + 1), Create: opts}
	f.checkRuns = append(f.checkRuns, run)
	f.mu.Unlock()

	writeJSON(w, http.StatusCreated, &github.CheckRun{
		ID:      github.Ptr(run.ID),
		Name:    github.Ptr(opts.Name),
		HeadSHA: github.Ptr(opts.HeadSHA),
		Status:  opts.Status,
	})
}

func (f *Fake) updateCheckRun(w http.ResponseWriter, r *http.Request) {
	if f.injectFailure(w, r) {
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var opts github.UpdateCheckRunOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if id < 1 || int(id) > len(f.checkRuns) {
		writeError(w, http.StatusNotFound, "check run not found")
		return
	}
	run := f.checkRuns[id-1]
	run.Updates = append(run.Updates, opts)
	writeJSON(w, http.StatusOK, &github.CheckRun{
		ID:         github.Ptr(id),
		Status:     opts.Status,
		Conclusion: opts.Conclusion,
	})
}

func (f *Fake) getContents(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	ref := r.URL.Query().Get("ref")

	f.mu.Lock()
	b, ok := f.contents[ref][path]
	f.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	writeJSON(w, http.StatusOK, &github.RepositoryContent{
		Type:     github.Ptr("file"),
		Encoding: github.Ptr("base64"),
		Path:     github.Ptr(path),
		SHA:      github.Ptr(b.sha),
		Content:  github.Ptr(base64.StdEncoding.EncodeToString(b.content)),
	})
}

func (f *Fake) putContents(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	var opts github.RepositoryContentFileOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	branch := opts.GetBranch()

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conflicts[path] {
		writeError(w, http.StatusConflict, fmt.Sprintf("%s does not match", opts.GetSHA()))
		return
	}
	current, exists := f.contents[branch][path]
	switch {
	case exists && opts.SHA == nil:
		writeError(w, http.StatusUnprocessableEntity, `"sha" wasn't supplied.`)
		return
	case exists && opts.GetSHA() != current.sha:
		writeError(w, http.StatusConflict, fmt.Sprintf("%s does not match %s", path, opts.GetSHA()))
		return
	case !exists && opts.SHA != nil:
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}

	sha := f.putLocked(branch, path, opts.Content)
	f.writes = append(f.writes, Write{
		Path:    path,
		Branch:  branch,
		Message: opts.GetMessage(),
		SHA:     opts.GetSHA(),
		Content: append([]byte(nil), opts.Content...),
	})
	status := http.StatusOK
	if !exists {
		status = http.StatusCreated
	}
	writeJSON(w, status, &github.RepositoryContentResponse{
		Content: &github.RepositoryContent{Path: github.Ptr(path), SHA: github.Ptr(sha)},
	})
}

func (f *Fake) graphql(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	number, _ := req.Variables["number"].(float64)

	f.mu.Lock()
	h, ok := f.heads[int(number)]
	f.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{
			"data":   nil,
			"errors": []map[string]any{{"message": "Could not resolve to a PullRequest"}},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"repository": map[string]any{
				"pullRequest": map[string]any{
					"headRefName": h.Ref,
					"headRefOid":  h.SHA,
				},
			},
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
