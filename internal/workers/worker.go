package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Worker is a periodic background job.
type Worker interface {
	Name() string
	Interval() time.Duration
	Run(ctx context.Context) error
}

// WorkerManager runs every registered worker on its own ticker.
type WorkerManager struct {
	workers  []Worker
	logger   *zap.Logger
	timeout  time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex
}

func NewWorkerManager(logger *zap.Logger) *WorkerManager {
	return &WorkerManager{
		workers:  []Worker{},
		logger:   logger,
		timeout:  10 * time.Minute,
		stopChan: make(chan struct{}),
	}
}

func (wm *WorkerManager) RegisterWorker(w Worker) {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	wm.workers = append(wm.workers, w)
	wm.logger.Info("worker registered", zap.String("worker", w.Name()), zap.Duration("interval", w.Interval()))
}

func (wm *WorkerManager) Start() {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	for _, worker := range wm.workers {
		wm.wg.Add(1)
		go wm.runWorker(worker)
	}
	wm.logger.Info("workers started", zap.Int("count", len(wm.workers)))
}

func (wm *WorkerManager) runWorker(w Worker) {
	defer wm.wg.Done()

	ticker := time.NewTicker(w.Interval())
	defer ticker.Stop()

	// first run immediately
	wm.executeWorker(w)

	for {
		select {
		case <-ticker.C:
			wm.executeWorker(w)
		case <-wm.stopChan:
			wm.logger.Info("worker stopped", zap.String("worker", w.Name()))
			return
		}
	}
}

func (wm *WorkerManager) executeWorker(w Worker) {
	ctx, cancel := context.WithTimeout(context.Background(), wm.timeout)
	defer cancel()

	start := time.Now()
	if err := w.Run(ctx); err != nil {
		wm.logger.Error("worker run failed", zap.String("worker", w.Name()), zap.Error(err))
		return
	}
	wm.logger.Debug("worker run finished", zap.String("worker", w.Name()), zap.Duration("took", time.Since(start)))
}

// Stop signals every worker and waits for in-flight runs to finish.
func (wm *WorkerManager) Stop() {
	wm.stopOnce.Do(func() { close(wm.stopChan) })
	wm.wg.Wait()
	wm.logger.Info("all workers stopped")
}

type WorkerStats struct {
	TotalWorkers int      `json:"totalWorkers"`
	WorkerNames  []string `json:"workerNames"`
}

func (wm *WorkerManager) GetStats() WorkerStats {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	names := make([]string, len(wm.workers))
	for i, w := range wm.workers {
		names[i] = w.Name()
	}
	return WorkerStats{
		TotalWorkers: len(wm.workers),
		WorkerNames:  names,
	}
}
