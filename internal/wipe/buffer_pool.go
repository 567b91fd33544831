package wipe

import (
	crand "crypto/rand"
	"fmt"
	"math/rand/v2"
	"sync"
)

// BufferPool управляет пулом буферов для записи чанков
type BufferPool struct {
	pools map[int]*sync.Pool
	mu    sync.RWMutex
}

var globalBufferPool = &BufferPool{
	pools: make(map[int]*sync.Pool),
}

// GetBuffer получает буфер из пула или создает новый
func GetBuffer(size int) []byte {
	if size <= 0 {
		return nil
	}

	return globalBufferPool.getBuffer(size)
}

// PutBuffer возвращает буфер в пул
func PutBuffer(buf []byte) {
	if cap(buf) == 0 {
		return
	}

	globalBufferPool.putBuffer(buf)
}

func (bp *BufferPool) getBuffer(size int) []byte {
	poolSize := bp.getPoolSize(size)

	bp.mu.RLock()
	pool, exists := bp.pools[poolSize]
	bp.mu.RUnlock()

	if !exists {
		bp.mu.Lock()
		pool, exists = bp.pools[poolSize]
		if !exists {
			pool = &sync.Pool{
				New: func() interface{} {
					b := make([]byte, poolSize)
					return &b
				},
			}
			bp.pools[poolSize] = pool
		}
		bp.mu.Unlock()
	}

	buf := *(pool.Get().(*[]byte))
	return buf[:size]
}

func (bp *BufferPool) putBuffer(buf []byte) {
	capacity := cap(buf)

	bp.mu.RLock()
	pool, exists := bp.pools[capacity]
	bp.mu.RUnlock()

	// Буферы чужого размера не принимаем
	if !exists {
		return
	}

	// В буфере могли остаться случайные данные прохода
	buf = buf[:capacity]
	clear(buf)
	pool.Put(&buf)
}

// getPoolSize округляет размер вверх до степени двойки (минимум 4KB)
func (bp *BufferPool) getPoolSize(size int) int {
	poolSize := 4096
	for poolSize < size {
		poolSize <<= 1
	}
	return poolSize
}

// FillBufferPattern заполняет буфер одним байтом
func FillBufferPattern(buf []byte, pattern byte) {
	for i := range buf {
		buf[i] = pattern
	}
}

// randomSource поток псевдослучайных байт для одного прохода.
// ChaCha8 с ключом из crypto/rand: непредсказуемо и быстрее чтения crypto/rand на каждый чанк.
type randomSource struct {
	rng *rand.ChaCha8
}

func newRandomSource() (*randomSource, error) {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("ошибка генерации случайных данных: %w", err)
	}
	return &randomSource{rng: rand.NewChaCha8(seed)}, nil
}

// Fill заполняет буфер случайными данными
func (r *randomSource) Fill(buf []byte) {
	_, _ = r.rng.Read(buf)
}
