package dataset

import "sync"

// Holder 保存当前数据集(线程安全)
// 启动时写入一次；开启文件监听时由重新加载替换
type Holder struct {
	mu sync.RWMutex
	ds *Dataset
}

func NewHolder(ds *Dataset) *Holder {
	return &Holder{ds: ds}
}

// Get 获取当前数据集
func (h *Holder) Get() *Dataset {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ds
}

// Set 替换当前数据集
func (h *Holder) Set(ds *Dataset) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ds = ds
}

// ReloadFrom 用新的加载器加载；失败时保留旧数据集
func (h *Holder) ReloadFrom(l *Loader) (*Dataset, error) {
	ds, err := l.Load()
	if err != nil {
		return h.Get(), err
	}
	h.Set(ds)
	return ds, nil
}
