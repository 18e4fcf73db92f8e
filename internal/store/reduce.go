package store

// Reduce applies a to s and returns the new state. Unknown actions leave s
// unchanged.
func Reduce(s State, a Action) State {
	next, _ := reduce(s, a)
	return next
}

func reduce(s State, a Action) (State, bool) {
	switch a := a.(type) {
	case SetGuru:
		s.GuruType = a.GuruType
	case SetInput:
		s.Input = a.Text
	case StartAsking:
		s.Asking = true
		s.Loading = true
		s.Query = a.Question
		s.Error = ErrorState{}
		s.NotFound = false
	case SetLoading:
		s.Loading = a.On
	case SetSummary:
		s.Summary = a.Summary
		s.HasFetched = false
		s.NotFound = false
		if a.Summary != nil {
			s.Query = a.Summary.Question
		}
	case StartStream:
		s.Streaming = true
		s.HasFetched = true
		s.WaitingForFirstChunk = true
		s.SlugPageRendered = false
		s.Content = ""
		s.Suggestions = nil
	case AppendChunk:
		s.Content += a.Text
		if a.Text != "" {
			s.WaitingForFirstChunk = false
			s.Error = ErrorState{}
		}
	case RevealStream:
		s.SlugPageRendered = true
	case FinishStream:
		s.Streaming = false
		s.Asking = false
		s.Loading = false
		s.WaitingForFirstChunk = false
		s.SlugPageRendered = true
	case StreamFailed:
		s.Streaming = false
		s.Asking = false
		s.Loading = false
		s.WaitingForFirstChunk = false
		s.SlugPageRendered = true
	case SetError:
		s.Error = a.Error
		s.Streaming = false
		s.Asking = false
		s.Loading = false
		s.WaitingForFirstChunk = false
		s.SlugPageRendered = true
	case ClearError:
		s.Error = ErrorState{}
	case SetNotFound:
		s.NotFound = true
		s.Streaming = false
		s.Asking = false
		s.Loading = false
		s.WaitingForFirstChunk = false
		s.SlugPageRendered = true
	case ShowStored:
		s.CurrentSlug = a.Slug
		s.Query = a.Question
		s.Content = a.Content
		s.HasFetched = true
		s.NotFound = false
		s.SlugPageRendered = true
	case SetMetadata:
		s.TrustScore = a.TrustScore
		s.DateUpdated = a.DateUpdated
		s.References = a.References
		s.FollowUps = a.FollowUps
		if s.FollowUps == nil {
			s.FollowUps = []string{}
		}
	case SetSuggestions:
		s.Suggestions = a.Questions
	case AdvanceSlug:
		if a.FollowUp && s.CurrentSlug != "" && s.CurrentSlug != a.Slug {
			s.ParentSlug = s.CurrentSlug
		}
		s.CurrentSlug = a.Slug
	case SetBinge:
		s.Binge = Binge{ID: a.ID, RootSlug: a.RootSlug}
	case SetBingeOutdated:
		s.Binge.Outdated = a.Outdated
	case LeaveBinge:
		s.Binge = Binge{}
		s.ParentSlug = ""
	case Reset:
		s.Input = ""
		s.Query = ""
		s.Loading = false
		s.Asking = false
		s.Streaming = false
		s.WaitingForFirstChunk = false
		s.SlugPageRendered = true
		s.HasFetched = false
		s.NotFound = false
		s.Error = ErrorState{}
	case Batch:
		for _, inner := range a {
			var ok bool
			if s, ok = reduce(s, inner); !ok {
				return s, false
			}
		}
	default:
		return s, false
	}
	return s, true
}
