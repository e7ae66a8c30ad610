package cheque

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/checkmate-io/checkmate/internal/pages"
)

// errUnsupportedForTest matches the sentinel the normalizer returns for
// unrecognized uploads
var errUnsupportedForTest = fmt.Errorf("%w: \"text/plain\"", pages.ErrUnsupportedFormat)

// multipartUpload builds a multipart body with one file field
func multipartUpload(filename string, data []byte) (*bytes.Buffer, string) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	Expect(err).NotTo(HaveOccurred())
	_, err = part.Write(data)
	Expect(err).NotTo(HaveOccurred())
	Expect(writer.Close()).NotTo(HaveOccurred())
	return &body, writer.FormDataContentType()
}

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		normalizer  *mockNormalizer
		extractor   *mockExtractor
		service     *Service
		server      *Server
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	setupServer := func(handlers int) {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		ghttpServer = ghttp.NewServer()
		for i := 0; i < handlers; i++ {
			ghttpServer.AppendHandlers(server.ServeHTTP)
		}
	}

	BeforeEach(func() {
		db = newMockDB()
		normalizer = &mockNormalizer{pages: [][]byte{[]byte("page-1")}}
		extractor = &mockExtractor{replies: []extractReply{{text: validResponse}}}
		service = NewServiceWithDeps(db, normalizer, extractor, &mockTimeSource{now: time.Now()})
		auth = BasicAuth{}
		server = NewServerWithMux(service, auth, http.NewServeMux())
		setupServer(1)
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	Describe("handleIndex", func() {
		It("should return the HTML interface", func() {
			resp, err := http.Get(ghttpServer.URL() + "/")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("CheckMate"))
		})
	})

	Describe("handleListCheques", func() {
		When("cheques exist", func() {
			BeforeEach(func() {
				db.records = []*ChequeRecord{
					{PayeeName: "First"},
					{PayeeName: "Second"},
				}
			})

			It("should return all records as JSON", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/cheques")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))

				var records []*ChequeRecord
				Expect(json.NewDecoder(resp.Body).Decode(&records)).NotTo(HaveOccurred())
				Expect(records).To(HaveLen(2))
				Expect(records[0].PayeeName).To(Equal("First"))
			})
		})

		When("no cheques exist", func() {
			It("should return an empty JSON array, not null", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/cheques")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(bytes.TrimSpace(body))).To(Equal("[]"))
			})
		})
	})

	Describe("handleUploadCheque", func() {
		It("processes an upload and returns the per-page outcomes", func() {
			body, contentType := multipartUpload("cheque.jpg", []byte("image bytes"))
			resp, err := http.Post(ghttpServer.URL()+"/api/cheques", contentType, body)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var result SubmissionResult
			Expect(json.NewDecoder(resp.Body).Decode(&result)).NotTo(HaveOccurred())
			Expect(result.Duplicate).To(BeFalse())
			Expect(result.Pages).To(HaveLen(1))
			Expect(result.Pages[0].Status).To(Equal(PageDone))
			Expect(db.records).To(HaveLen(1))
		})

		It("sets a session cookie on first contact", func() {
			body, contentType := multipartUpload("cheque.jpg", []byte("image bytes"))
			resp, err := http.Post(ghttpServer.URL()+"/api/cheques", contentType, body)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()

			var found bool
			for _, c := range resp.Cookies() {
				if c.Name == sessionCookieName {
					found = true
				}
			}
			Expect(found).To(BeTrue())
		})

		It("returns 409 for a duplicate upload in the same session", func() {
			setupServer(2)

			body, contentType := multipartUpload("cheque.jpg", []byte("image bytes"))
			first, err := http.Post(ghttpServer.URL()+"/api/cheques", contentType, body)
			Expect(err).NotTo(HaveOccurred())
			first.Body.Close()
			Expect(first.StatusCode).To(Equal(http.StatusOK))

			body, contentType = multipartUpload("cheque.jpg", []byte("image bytes"))
			req, err := http.NewRequest("POST", ghttpServer.URL()+"/api/cheques", body)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", contentType)
			for _, c := range first.Cookies() {
				req.AddCookie(c)
			}

			second, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer second.Body.Close()
			Expect(second.StatusCode).To(Equal(http.StatusConflict))

			var result SubmissionResult
			Expect(json.NewDecoder(second.Body).Decode(&result)).NotTo(HaveOccurred())
			Expect(result.Duplicate).To(BeTrue())
			Expect(db.records).To(HaveLen(1))
		})

		It("returns 415 for an unsupported upload type", func() {
			normalizer.err = errUnsupportedForTest

			body, contentType := multipartUpload("cheque.txt", []byte("plain text"))
			resp, err := http.Post(ghttpServer.URL()+"/api/cheques", contentType, body)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnsupportedMediaType))

			var payload map[string]string
			Expect(json.NewDecoder(resp.Body).Decode(&payload)).NotTo(HaveOccurred())
			Expect(payload["reason"]).To(Equal(string(FailureUnsupportedFormat)))
		})

		It("returns 400 when no file is provided", func() {
			var body bytes.Buffer
			writer := multipart.NewWriter(&body)
			Expect(writer.Close()).NotTo(HaveOccurred())

			resp, err := http.Post(ghttpServer.URL()+"/api/cheques", writer.FormDataContentType(), &body)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("handleStats", func() {
		BeforeEach(func() {
			db.records = []*ChequeRecord{
				{Status: StatusProcessed},
				{Status: StatusFailed},
			}
		})

		It("returns the headline numbers", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/stats")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var stats Stats
			Expect(json.NewDecoder(resp.Body).Decode(&stats)).NotTo(HaveOccurred())
			Expect(stats.Total).To(Equal(2))
			Expect(stats.Failed).To(Equal(1))
		})
	})

	Describe("handleExportCheques", func() {
		BeforeEach(func() {
			db.records = []*ChequeRecord{{PayeeName: "John Smith"}}
		})

		It("serves a CSV attachment", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/cheques/export/csv")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("text/csv"))
			Expect(resp.Header.Get("Content-Disposition")).To(ContainSubstring("cheque_records.csv"))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("John Smith"))
		})

		It("serves an XLSX attachment", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/cheques/export/xlsx")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(ContainSubstring("spreadsheetml"))
		})

		It("rejects an unknown format", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/cheques/export/yaml")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "user", Password: "pass"}
			server = NewServerWithMux(service, auth, http.NewServeMux())
			setupServer(1)
		})

		It("rejects requests without credentials", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/cheques")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("accepts requests with valid credentials", func() {
			req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/cheques", nil)
			Expect(err).NotTo(HaveOccurred())
			req.SetBasicAuth("user", "pass")

			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})
})
