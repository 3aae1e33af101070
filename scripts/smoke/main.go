// Command smoke walks the core NOC workflow against a running instance using
// the seeded demo accounts and reports per-step results. Intended as a
// post-deploy check; exits non-zero when any step fails.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

type step struct {
	Name     string
	Status   int
	Expected int
	Duration time.Duration
	Error    error
}

type session struct {
	client *http.Client
	base   string
	token  string
}

func main() {
	var (
		base         string
		studentEmail string
		facultyEmail string
		password     string
		timeout      time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&studentEmail, "student", "student@example.com", "Seeded student email")
	flag.StringVar(&facultyEmail, "faculty", "faculty@example.com", "Seeded faculty email")
	flag.StringVar(&password, "password", "password123", "Seeded account password")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	client := &http.Client{Timeout: timeout}
	var steps []step

	student := &session{client: client, base: base}
	faculty := &session{client: client, base: base}

	steps = append(steps, checkStatus(client, base, "/health", http.StatusOK))
	steps = append(steps, checkStatus(client, base, "/ready", http.StatusOK))

	steps = append(steps, student.login("student login", studentEmail, password))
	steps = append(steps, faculty.login("faculty login", facultyEmail, password))

	var created struct {
		ID int64 `json:"id"`
	}
	steps = append(steps, student.do("student creates request", http.MethodPost, "/api/v1/noc-requests", map[string]interface{}{
		"company_name": "Smoke Test Corp",
		"role_title":   "QA Intern",
		"duration":     "1 month",
		"start_date":   "2026-09-01",
		"end_date":     "2026-09-30",
	}, http.StatusCreated, &created))

	path := fmt.Sprintf("/api/v1/noc-requests/%d", created.ID)
	steps = append(steps, faculty.do("faculty approves request", http.MethodPatch, path, map[string]interface{}{
		"status": "APPROVED",
	}, http.StatusOK, nil))
	steps = append(steps, faculty.do("second decision is rejected", http.MethodPatch, path, map[string]interface{}{
		"status":  "REJECTED",
		"remarks": "smoke",
	}, http.StatusConflict, nil))

	steps = append(steps, student.do("student reads certificate", http.MethodGet, path+"/certificate", nil, http.StatusOK, nil))

	var artifact struct {
		Token string `json:"token"`
	}
	steps = append(steps, student.do("student requests pdf", http.MethodPost, path+"/certificate/download", nil, http.StatusAccepted, &artifact))

	steps = append(steps, student.waitForDownload("pdf becomes downloadable", artifact.Token, 10*time.Second))
	steps = append(steps, student.do("dashboard summary", http.MethodGet, "/api/v1/dashboard/summary", nil, http.StatusOK, nil))

	failed := printReport(steps)
	if failed > 0 {
		os.Exit(1)
	}
}

func checkStatus(client *http.Client, base, path string, expected int) step {
	start := time.Now()
	resp, err := client.Get(strings.TrimRight(base, "/") + path)
	st := step{Name: "GET " + path, Expected: expected, Duration: time.Since(start), Error: err}
	if err == nil {
		st.Status = resp.StatusCode
		resp.Body.Close()
	}
	return st
}

func (s *session) login(name, email, password string) step {
	var result struct {
		AccessToken string `json:"access_token"`
	}
	st := s.do(name, http.MethodPost, "/api/v1/auth/login", map[string]interface{}{
		"email":    email,
		"password": password,
	}, http.StatusOK, &result)
	s.token = result.AccessToken
	return st
}

func (s *session) do(name, method, path string, payload interface{}, expected int, out interface{}) step {
	st := step{Name: name, Expected: expected}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			st.Error = err
			return st
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, strings.TrimRight(s.base, "/")+path, body)
	if err != nil {
		st.Error = err
		return st
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	st.Duration = time.Since(start)
	if err != nil {
		st.Error = err
		return st
	}
	defer resp.Body.Close()
	st.Status = resp.StatusCode

	if out != nil && resp.StatusCode == expected {
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			st.Error = fmt.Errorf("read body: %w", err)
			return st
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			st.Error = fmt.Errorf("decode envelope: %w", err)
			return st
		}
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			st.Error = fmt.Errorf("decode data: %w", err)
			return st
		}
	}
	return st
}

func (s *session) waitForDownload(name, token string, maxWait time.Duration) step {
	st := step{Name: name, Expected: http.StatusOK}
	deadline := time.Now().Add(maxWait)
	start := time.Now()
	for {
		req, err := http.NewRequest(http.MethodGet, strings.TrimRight(s.base, "/")+"/api/v1/certificates/download?token="+token, nil)
		if err != nil {
			st.Error = err
			return st
		}
		req.Header.Set("Authorization", "Bearer "+s.token)
		resp, err := s.client.Do(req)
		if err != nil {
			st.Error = err
			return st
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		st.Status = resp.StatusCode
		st.Duration = time.Since(start)
		if resp.StatusCode == http.StatusOK || time.Now().After(deadline) {
			return st
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func printReport(steps []step) int {
	fmt.Println("NOC Portal Smoke Report")
	fmt.Println("=======================")
	failed := 0
	for _, st := range steps {
		status := "OK"
		if st.Error != nil || st.Status != st.Expected {
			status = "FAIL"
			failed++
		}
		fmt.Printf("[%s] %s\n", status, st.Name)
		fmt.Printf("  Status: %d (want %d, %s)\n", st.Status, st.Expected, st.Duration)
		if st.Error != nil {
			fmt.Printf("  Error: %v\n", st.Error)
		}
	}
	fmt.Printf("Failed steps: %d\n", failed)
	return failed
}
