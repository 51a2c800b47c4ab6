package ledger

// journalEntry is a revertible change to the account set.
type journalEntry struct {
	addr Address
	// prev is nil when the account did not exist before the change
	prev *Account
}

// journal records the first touch of every account during one settlement.
type journal struct {
	entries []journalEntry
	touched map[Address]bool
}

func newJournal() *journal {
	return &journal{touched: make(map[Address]bool)}
}

func (j *journal) touch(l *Ledger, addr Address) {
	if j.touched[addr] {
		return
	}
	j.touched[addr] = true
	var prev *Account
	if acc, ok := l.accounts[addr]; ok {
		prev = acc.Clone()
	}
	j.entries = append(j.entries, journalEntry{addr: addr, prev: prev})
}

func (j *journal) revert(l *Ledger) {
	for i := len(j.entries) - 1; i >= 0; i-- {
		e := j.entries[i]
		if e.prev == nil {
			delete(l.accounts, e.addr)
		} else {
			l.accounts[e.addr] = e.prev
		}
	}
	j.entries = nil
	clear(j.touched)
}
