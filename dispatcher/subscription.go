package dispatcher

// Subscription removes a handler from its dispatcher.
type Subscription interface {
	Unsubscribe()
}

type subs struct {
	dispatcher *Dispatcher
	msgType    string
	handler    any
}

func (s *subs) Unsubscribe() {
	d := s.dispatcher
	d.mu.Lock()
	defer d.mu.Unlock()

	handlers := d.handlers[s.msgType]
	kept := make([]any, 0, len(handlers))
	for _, h := range handlers {
		if h != s.handler {
			kept = append(kept, h)
		}
	}
	if len(kept) == 0 {
		delete(d.handlers, s.msgType)
		return
	}
	d.handlers[s.msgType] = kept
}
