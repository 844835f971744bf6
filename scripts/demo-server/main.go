// Fake storage-management API for trying the example scenarios locally.
//
//	go run ./scripts/demo-server
//	riposte run -f examples/iam-users.yaml --prop hostname=127.0.0.1
//
// Serves HTTPS with a self-signed certificate, so scenarios need
// insecure_skip_verify: true.
package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

type iamStore struct {
	mu    sync.Mutex
	users map[string]bool
	seq   int
}

func (s *iamStore) login(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.seq++
	token := fmt.Sprintf("demo-token-%d", s.seq)
	s.mu.Unlock()

	w.Header().Set("Authorization", token)
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"authenticated":true}`)
}

func (s *iamStore) logout(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *iamStore) listUsers(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"users":[{"username":"demo_user1"},{"username":"demo_user2"}]}`)
}

func (s *iamStore) createUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UID         string `json:"uid"`
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UID == "" {
		http.Error(w, `{"error":"uid is required"}`, http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.users[body.UID] = true
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"uid": body.UID, "display_name": body.DisplayName})
}

func (s *iamStore) userByUID(w http.ResponseWriter, r *http.Request) {
	uid := strings.TrimPrefix(r.URL.Path, "/api/v2/iam/users/")
	if r.Method != http.MethodDelete {
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	known := s.users[uid]
	delete(s.users, uid)
	s.mu.Unlock()

	if !known {
		http.Error(w, `{"error":"user not found"}`, http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *iamStore) setQuota(w http.ResponseWriter, r *http.Request) {
	uid := strings.TrimPrefix(r.URL.Path, "/api/v2/iam/quota/")

	s.mu.Lock()
	known := s.users[uid]
	s.mu.Unlock()

	if !known {
		http.Error(w, `{"error":"user not found"}`, http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// selfSignedCert generates a throwaway certificate for localhost.
func selfSignedCert() (tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, err
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{Organization: []string{"riposte demo"}},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{"localhost"},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, err
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}, nil
}

func main() {
	store := &iamStore{users: map[string]bool{}}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/login", store.login)
	mux.HandleFunc("/api/v2/logout", store.logout)
	mux.HandleFunc("/api/v2/system/users", store.listUsers)
	mux.HandleFunc("/api/v2/iam/users", store.createUser)
	mux.HandleFunc("/api/v2/iam/users/", store.userByUID)
	mux.HandleFunc("/api/v2/iam/quota/", store.setQuota)

	cert, err := selfSignedCert()
	if err != nil {
		log.Fatal(err)
	}

	server := &http.Server{
		Addr:              ":28100",
		Handler:           mux,
		TLSConfig:         &tls.Config{Certificates: []tls.Certificate{cert}},
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      5 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	log.Printf("Starting demo storage-management API on https://127.0.0.1:28100")
	log.Printf("Deletes of never-created uids return 404, matching the real API")

	if err := server.ListenAndServeTLS("", ""); err != nil {
		log.Fatal(err)
	}
}
