package models

// Lookups over a loaded survey graph. The graph is expected to be sorted
// and integrity-checked before these are used.

func (s *Survey) SectionAt(i int) *Section {
	if i < 0 || i >= len(s.Sections) {
		return nil
	}
	return s.Sections[i]
}

// Questions returns every question in section order, then question order.
func (s *Survey) Questions() []*Question {
	var out []*Question
	for _, sec := range s.Sections {
		out = append(out, sec.Questions...)
	}
	return out
}

func (s *Survey) QuestionByID(id string) *Question {
	for _, sec := range s.Sections {
		for _, q := range sec.Questions {
			if q.ID == id {
				return q
			}
		}
	}
	return nil
}

// QuestionByCode returns the first question with code in section order.
func (s *Survey) QuestionByCode(code string) *Question {
	for _, sec := range s.Sections {
		if q := sec.QuestionByCode(code); q != nil {
			return q
		}
	}
	return nil
}

// HasScale reports whether any question contributes to the summed score.
func (s *Survey) HasScale() bool {
	for _, q := range s.Questions() {
		if q.Type == QuestionLikert {
			return true
		}
	}
	return false
}

func (s *Section) QuestionByCode(code string) *Question {
	for _, q := range s.Questions {
		if q.Code == code {
			return q
		}
	}
	return nil
}

func (q *Question) OptionByCode(code string) *Option {
	for _, o := range q.Options {
		if o.Code == code {
			return o
		}
	}
	return nil
}

func (q *Question) OptionByID(id string) *Option {
	for _, o := range q.Options {
		if o.ID == id {
			return o
		}
	}
	return nil
}

// OtherOption returns the option flagged as the free-text trigger, if any.
func (q *Question) OtherOption() *Option {
	for _, o := range q.Options {
		if o.IsOther {
			return o
		}
	}
	return nil
}

// HasOption reports whether the answer selected the option with the given id.
func (a *Answer) HasOption(id string) bool {
	for _, v := range a.OptionIDs {
		if v == id {
			return true
		}
	}
	return false
}
