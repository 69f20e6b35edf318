package service

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func setupTestSlackIdentityService() (SlackIdentityService, *mockDB, *mockGateway) {
	db := newMockDB()
	repo := newMockRepository(db)
	gw := newMockGateway()
	settings := NewSettingsService(testConfig(), repo, zap.NewNop())
	return NewSlackIdentityService(repo, settings, gw.factory(), zap.NewNop()), db, gw
}

func TestSlackIdentityService_Sync(t *testing.T) {
	svc, db, gw := setupTestSlackIdentityService()
	db.users["u1"] = userWithEmail("u1", "taro@example.com")
	db.users["u2"] = userWithEmail("u2", "nobody@example.com")
	linked := userWithEmail("u3", "hanako@example.com")
	linked.SlackUserID = strPtr("UEXIST")
	db.users["u3"] = linked
	gw.emails["taro@example.com"] = "U42"

	report, err := svc.Sync(context.Background(), 0)
	if err != nil {
		t.Fatalf("Sync 应成功: %v", err)
	}
	if report.Checked != 2 || report.Linked != 1 || report.NotFound != 1 {
		t.Errorf("统计错误: %+v", report)
	}
	if got := db.users["u1"].SlackUserID; got == nil || *got != "U42" {
		t.Error("u1 应绑定 U42")
	}
	if db.users["u2"].SlackUserID != nil {
		t.Error("未找到的用户不应绑定")
	}
}

func TestSlackIdentityService_Sync_Disabled(t *testing.T) {
	svc, db, gw := setupTestSlackIdentityService()
	gw.enabled = false
	db.users["u1"] = userWithEmail("u1", "taro@example.com")

	report, err := svc.Sync(context.Background(), 10)
	if err != nil {
		t.Fatalf("Sync 应成功: %v", err)
	}
	if !report.Disabled || len(gw.calls) != 0 {
		t.Errorf("未启用时应为空操作，report=%+v calls=%v", report, gw.calls)
	}
}
