package messenger

import "github.com/amqp-messenger/messenger/internal/engine"

// setCredit adjusts the receive-credit pool: n == -1 sets unlimited;
// otherwise n is added to the pool and unlimited is cleared. Either way
// it invokes distribute.
func (m *Messenger) setCredit(n int) {
	if n == -1 {
		m.unlimited = true
	} else {
		m.credit += int64(n)
		m.unlimited = false
	}
	m.distributeCredit()
}

// distributeCredit grants flow to active receivers, batched fairly
// across them. Run on every processor pass and on setCredit.
func (m *Messenger) distributeCredit() {
	receivers := m.receivers()
	l := int64(len(receivers))
	if l == 0 {
		return
	}
	if m.unlimited {
		m.credit = l * defaultBatchSize
	}
	batch := m.credit / l
	if batch < 1 {
		batch = 1
	}
	for _, r := range receivers {
		if m.credit <= 0 {
			break
		}
		have := int64(r.Credit())
		if have >= batch {
			continue
		}
		amount := batch - have
		if amount > m.credit {
			amount = m.credit
		}
		r.Flow(uint32(amount))
		m.distributed += amount
		m.credit -= amount
	}
}

// receivers returns every receiver link, across every connection, whose
// local state is Active.
func (m *Messenger) receivers() []*engine.Link {
	var out []*engine.Link
	for _, c := range m.conns {
		for _, l := range c.Links(engine.SetActive, engine.SetAny) {
			if l.Role() == roleReceiver {
				out = append(out, l)
			}
		}
	}
	return out
}

// reclaimCredit returns credit held by receivers on a destroyed
// connection to the pool.
func (m *Messenger) reclaimCredit(c *engine.Connection) {
	for _, l := range c.Links(engine.SetAny, engine.SetAny) {
		if l.Role() != roleReceiver {
			continue
		}
		have := int64(l.Credit())
		if have > 0 {
			m.credit += have
			m.distributed -= have
		}
	}
}
