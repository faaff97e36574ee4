package manager

import (
	"fmt"
	"net"
	"strconv"
	"sync"
)

// PortAllocator hands out listeners on consecutive ports. Each Listen
// starts at the port after the last one handed out and tries at most
// attempts ports.
type PortAllocator struct {
	mu       sync.Mutex
	next     int
	attempts int
	listen   func(network, address string) (net.Listener, error)
}

// NewPortAllocator starts at base. base 0 binds ephemeral ports.
func NewPortAllocator(base, attempts int) *PortAllocator {
	if attempts < 1 {
		attempts = 1
	}
	return &PortAllocator{next: base, attempts: attempts, listen: net.Listen}
}

func (p *PortAllocator) Listen(host string) (net.Listener, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.next == 0 {
		return p.listen("tcp", net.JoinHostPort(host, "0"))
	}

	var lastErr error
	for i := 0; i < p.attempts; i++ {
		port := p.next + i
		if port > 65535 {
			break
		}
		ln, err := p.listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
		if err != nil {
			lastErr = err
			continue
		}
		p.next = port + 1
		return ln, nil
	}
	if lastErr == nil {
		return nil, fmt.Errorf("port range exhausted at %d", p.next)
	}
	return nil, fmt.Errorf("no free port in %d attempts from %d: %w", p.attempts, p.next, lastErr)
}
