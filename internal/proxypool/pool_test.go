package proxypool

import (
	"fmt"
	"sync"
	"testing"

	"github.com/RecoveryAshes/PageHarvest/internal/models"
)

func makeEndpoints(n int) []*models.ProxyEndpoint {
	endpoints := make([]*models.ProxyEndpoint, 0, n)
	for i := 0; i < n; i++ {
		endpoints = append(endpoints, &models.ProxyEndpoint{
			Name:    fmt.Sprintf("ep-%d", i),
			Address: fmt.Sprintf("http://10.0.0.%d:3128", i+1),
		})
	}
	return endpoints
}

func TestPool_AcquireRelease(t *testing.T) {
	t.Run("独占获取", func(t *testing.T) {
		pool := NewPool(makeEndpoints(3))

		held := make(map[string]bool)
		for i := 0; i < 3; i++ {
			ep := pool.Acquire()
			if ep == nil {
				t.Fatalf("第%d次获取不应返回nil", i+1)
			}
			if held[ep.Name] {
				t.Fatalf("端点 %s 被重复分配", ep.Name)
			}
			held[ep.Name] = true
		}

		// 全部占用后第4次返回nil
		if ep := pool.Acquire(); ep != nil {
			t.Errorf("池耗尽后应返回nil, 实际: %s", ep.Name)
		}
		if pool.InUseCount() != 3 {
			t.Errorf("期望3个端点在用, 实际: %d", pool.InUseCount())
		}
	})

	t.Run("归还后可再次获取", func(t *testing.T) {
		pool := NewPool(makeEndpoints(1))

		ep := pool.Acquire()
		if ep == nil {
			t.Fatal("获取失败")
		}
		if pool.Acquire() != nil {
			t.Error("唯一端点占用中, 应返回nil")
		}

		pool.Release(ep)
		if pool.InUseCount() != 0 {
			t.Errorf("归还后在用数应为0, 实际: %d", pool.InUseCount())
		}

		again := pool.Acquire()
		if again == nil || again.Name != ep.Name {
			t.Error("归还后的端点应可再次获取")
		}
	})

	t.Run("空池返回nil", func(t *testing.T) {
		pool := NewPool(nil)
		if pool.Acquire() != nil {
			t.Error("空池应返回nil")
		}
		if pool.Size() != 0 {
			t.Errorf("空池大小应为0, 实际: %d", pool.Size())
		}
	})

	t.Run("归还nil是空操作", func(t *testing.T) {
		pool := NewPool(makeEndpoints(2))
		pool.Release(nil)
		if pool.InUseCount() != 0 {
			t.Error("归还nil不应改变在用集合")
		}
	})

	t.Run("重复归还是空操作", func(t *testing.T) {
		pool := NewPool(makeEndpoints(2))
		ep := pool.Acquire()
		pool.Release(ep)
		pool.Release(ep)
		if pool.InUseCount() != 0 {
			t.Errorf("重复归还后在用数应为0, 实际: %d", pool.InUseCount())
		}
	})
}

func TestPool_ConcurrentExclusive(t *testing.T) {
	const endpoints = 4
	const workers = 16
	const rounds = 50

	pool := NewPool(makeEndpoints(endpoints))

	// 记录每个端点的并发持有数,独占语义下永远不应超过1
	var mu sync.Mutex
	holding := make(map[string]int)
	violated := false

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				ep := pool.Acquire()
				if ep == nil {
					continue
				}

				mu.Lock()
				holding[ep.Name]++
				if holding[ep.Name] > 1 {
					violated = true
				}
				mu.Unlock()

				mu.Lock()
				holding[ep.Name]--
				mu.Unlock()

				pool.Release(ep)
			}
		}()
	}
	wg.Wait()

	if violated {
		t.Error("同一端点被多个持有者同时获取")
	}
	if pool.InUseCount() != 0 {
		t.Errorf("全部归还后在用数应为0, 实际: %d", pool.InUseCount())
	}
}
