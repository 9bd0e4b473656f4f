// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package metrics

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordDBQuery(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		table     string
		err       error
	}{
		{"insert ok", "INSERT", "notification_likes", nil},
		{"select ok", "SELECT", "friendships", nil},
		{"short error", "UPDATE", "galleries", errors.New("connection refused")},
		{"long error", "DELETE", "friendships", errors.New(strings.Repeat("x", 120))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.CollectAndCount(DBQueryErrors)
			RecordDBQuery(tt.operation, tt.table, time.Millisecond, tt.err)
			after := testutil.CollectAndCount(DBQueryErrors)
			if tt.err == nil && after != before {
				t.Errorf("error series changed on success: %d -> %d", before, after)
			}
		})
	}

	long := strings.Repeat("y", 80)
	RecordDBQuery("SELECT", "trunc_test", time.Millisecond, errors.New(long))
	got := testutil.ToFloat64(DBQueryErrors.WithLabelValues("SELECT", "trunc_test", long[:50]))
	if got != 1 {
		t.Errorf("truncated error label count = %v, want 1", got)
	}
}

func TestRecordInboundFoldsUnknownTypes(t *testing.T) {
	before := testutil.ToFloat64(WSMessagesReceived.WithLabelValues("unknown"))
	RecordInbound("weird_type_from_client", false)
	RecordInbound("", false)
	after := testutil.ToFloat64(WSMessagesReceived.WithLabelValues("unknown"))
	if after-before != 2 {
		t.Errorf("unknown delta = %v, want 2", after-before)
	}

	known := testutil.ToFloat64(WSMessagesReceived.WithLabelValues("like_notification"))
	RecordInbound("like_notification", true)
	if testutil.ToFloat64(WSMessagesReceived.WithLabelValues("like_notification"))-known != 1 {
		t.Error("known type not counted under its own label")
	}
}

func TestRecordRouterError(t *testing.T) {
	before := testutil.ToFloat64(RouterErrors.WithLabelValues("duplicate_like"))
	RecordRouterError("DUPLICATE_LIKE")
	if testutil.ToFloat64(RouterErrors.WithLabelValues("duplicate_like"))-before != 1 {
		t.Error("error code should be recorded lower-cased")
	}
}

func TestTrackActiveRequest(t *testing.T) {
	base := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != base+2 {
		t.Errorf("active = %v, want %v", got, base+2)
	}
	TrackActiveRequest(false)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != base {
		t.Errorf("active = %v, want %v", got, base)
	}
}

func TestConcurrentMetricRecording(t *testing.T) {
	var wg sync.WaitGroup
	before := testutil.ToFloat64(RouterLivePush.WithLabelValues("delivered"))
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			RecordLivePush("delivered")
			RecordFrameSent("notification")
			RecordNotificationPersisted("like")
			RecordRouted("like_notification", "ok", time.Millisecond)
		}()
	}
	wg.Wait()
	if got := testutil.ToFloat64(RouterLivePush.WithLabelValues("delivered")) - before; got != 50 {
		t.Errorf("delivered delta = %v, want 50", got)
	}
}
