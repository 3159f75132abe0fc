package account

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"manuscript-backend/internal/audits"
	"manuscript-backend/internal/gamification"
	"manuscript-backend/internal/manuscripts"
	"manuscript-backend/internal/users"
)

func newClaimRouter(svc *Service) *gin.Engine {
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userId", "user-1")
		c.Set("isGuest", false)
		c.Next()
	})
	api := router.Group("/api/v1")
	NewHandler(svc).RegisterRoutes(api)
	return router
}

func TestClaimGuestMigratesData(t *testing.T) {
	gin.SetMode(gin.TestMode)

	msRepo := manuscripts.NewMemoryRepo()
	auditRepo := audits.NewMemoryRepo()
	svc := NewService(msRepo, auditRepo, gamification.NewService(), users.NewMemoryRepo())
	router := newClaimRouter(svc)

	guestID := "11111111-1111-1111-1111-111111111111"
	guestUserID := "guest:" + guestID

	ms := manuscripts.Manuscript{
		ID:        "ms-1",
		UserID:    guestUserID,
		FileName:  "paper.pdf",
		MimeType:  "application/pdf",
		SizeBytes: 123,
		CreatedAt: time.Now().UTC(),
	}
	if err := msRepo.Create(context.Background(), ms); err != nil {
		t.Fatalf("create manuscript: %v", err)
	}
	audit := audits.Audit{
		ID:           "audit-1",
		ManuscriptID: ms.ID,
		UserID:       guestUserID,
		Status:       audits.StatusCompleted,
		CreatedAt:    time.Now().UTC(),
	}
	if err := auditRepo.Create(context.Background(), audit); err != nil {
		t.Fatalf("create audit: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/account/claim-guest", nil)
	req.Header.Set("X-Guest-Id", guestID)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	msList, err := msRepo.ListByUser(context.Background(), "user-1", 10, 0)
	if err != nil {
		t.Fatalf("list manuscripts: %v", err)
	}
	if len(msList) != 1 {
		t.Fatalf("expected 1 migrated manuscript, got %d", len(msList))
	}

	auditList, err := auditRepo.ListByUser(context.Background(), "user-1", 10)
	if err != nil {
		t.Fatalf("list audits: %v", err)
	}
	if len(auditList) != 1 {
		t.Fatalf("expected 1 migrated audit, got %d", len(auditList))
	}
}

func TestClaimGuestIdempotentAndIsolated(t *testing.T) {
	gin.SetMode(gin.TestMode)

	msRepo := manuscripts.NewMemoryRepo()
	auditRepo := audits.NewMemoryRepo()
	svc := NewService(msRepo, auditRepo, gamification.NewService(), users.NewMemoryRepo())
	router := newClaimRouter(svc)

	guestID := "22222222-2222-2222-2222-222222222222"
	guestUserID := "guest:" + guestID

	ms := manuscripts.Manuscript{
		ID:        "ms-2",
		UserID:    guestUserID,
		FileName:  "paper.pdf",
		MimeType:  "application/pdf",
		SizeBytes: 123,
		CreatedAt: time.Now().UTC(),
	}
	if err := msRepo.Create(context.Background(), ms); err != nil {
		t.Fatalf("create manuscript: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/account/claim-guest", nil)
	req.Header.Set("X-Guest-Id", guestID)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	req2 := httptest.NewRequest(http.MethodPost, "/api/v1/account/claim-guest", nil)
	req2.Header.Set("X-Guest-Id", guestID)
	resp2 := httptest.NewRecorder()
	router.ServeHTTP(resp2, req2)
	if resp2.Code != http.StatusOK {
		t.Fatalf("expected status 200 on idempotent call, got %d", resp2.Code)
	}

	msList, err := msRepo.ListByUser(context.Background(), "user-2", 10, 0)
	if err != nil {
		t.Fatalf("list manuscripts: %v", err)
	}
	if len(msList) != 0 {
		t.Fatalf("expected no manuscripts for other user, got %d", len(msList))
	}
}

func TestDeleteAccountRemovesAllData(t *testing.T) {
	msRepo := manuscripts.NewMemoryRepo()
	auditRepo := audits.NewMemoryRepo()
	userRepo := users.NewMemoryRepo()
	gamificationSvc := gamification.NewService()
	svc := NewService(msRepo, auditRepo, gamificationSvc, userRepo)

	ctx := context.Background()
	if err := msRepo.Create(ctx, manuscripts.Manuscript{ID: "ms-3", UserID: "user-3", FileName: "paper.pdf", MimeType: "application/pdf", CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("create manuscript: %v", err)
	}
	if err := auditRepo.Create(ctx, audits.Audit{ID: "audit-3", ManuscriptID: "ms-3", UserID: "user-3", Status: audits.StatusCompleted, CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("create audit: %v", err)
	}
	if err := userRepo.Upsert(ctx, users.User{ID: "user-3", Email: "user3@example.com"}); err != nil {
		t.Fatalf("upsert user: %v", err)
	}

	if err := svc.DeleteAccount(ctx, "user-3"); err != nil {
		t.Fatalf("delete account: %v", err)
	}

	msList, _ := msRepo.ListByUser(ctx, "user-3", 10, 0)
	if len(msList) != 0 {
		t.Fatalf("expected manuscripts removed, got %d", len(msList))
	}
	auditList, _ := auditRepo.ListByUser(ctx, "user-3", 10)
	if len(auditList) != 0 {
		t.Fatalf("expected audits removed, got %d", len(auditList))
	}
	if _, err := userRepo.GetByID(ctx, "user-3"); err != users.ErrNotFound {
		t.Fatalf("expected user removed, got err=%v", err)
	}
}
