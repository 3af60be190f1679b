package plugins

import (
	"context"

	"riff/internal/gitcmd"
	"riff/internal/logging"
	"riff/internal/pluginver"
	"riff/internal/refscache"
)

// versionTags returns the repository's version tags matching the versioning
// scheme, newest first. Results come from the refs cache when fresh; on
// remote failure an expired cache entry serves as fallback. repoDir may be
// empty, in which case tags come from ls-remote.
func (m *Manager) versionTags(ctx context.Context, url, repoDir, scheme string) []string {
	pattern := pluginver.SchemePattern(scheme)
	if pattern == nil {
		m.logger.Warn("unknown versioning scheme", logging.String("scheme", scheme))
		return nil
	}

	if m.refs != nil {
		if tags := m.refs.Tags(url, scheme, false); tags != nil {
			return tags
		}
	}

	var raw []string
	var err error
	if repoDir != "" {
		raw, err = m.git.Tags(ctx, repoDir)
	} else {
		raw, err = m.remoteTags(ctx, url)
	}
	if err != nil {
		m.logger.Warn("cannot list tags",
			logging.String(logging.FieldURL, url), logging.Error(err))
		if m.refs != nil {
			return m.refs.Tags(url, scheme, true)
		}
		return nil
	}

	var matching []string
	for _, tag := range raw {
		if pattern.MatchString(tag) {
			matching = append(matching, tag)
		}
	}
	sorted := pluginver.SortTags(matching, scheme)
	if m.refs != nil {
		m.refs.StoreTags(url, scheme, sorted)
	}
	return sorted
}

func (m *Manager) remoteTags(ctx context.Context, url string) ([]string, error) {
	refs, err := m.git.LsRemote(ctx, url)
	if err != nil {
		return nil, err
	}
	var tags []string
	for _, ref := range refs {
		if ref.Type == gitcmd.RefTypeTag {
			tags = append(tags, ref.Name)
		}
	}
	return tags, nil
}

// InvalidateRefs drops cached listings for url so the next query hits the
// remote, typically after a push to a local development repository.
func (m *Manager) InvalidateRefs(url string) {
	if m.refs != nil {
		m.refs.Invalidate(url)
	}
}

// Refs lists a repository's branches and tags, cache-first with TTL.
func (m *Manager) Refs(ctx context.Context, url string) (*refscache.Refs, error) {
	if m.refs != nil {
		if refs := m.refs.AllRefs(url, false); refs != nil {
			return refs, nil
		}
	}

	remote, err := m.git.LsRemote(ctx, url)
	if err != nil {
		if m.refs != nil {
			if stale := m.refs.AllRefs(url, true); stale != nil {
				m.logger.Warn("using stale refs cache",
					logging.String(logging.FieldURL, url), logging.Error(err))
				return stale, nil
			}
		}
		return nil, err
	}

	refs := &refscache.Refs{}
	for _, ref := range remote {
		switch ref.Type {
		case gitcmd.RefTypeBranch:
			refs.Branches = append(refs.Branches, ref.Name)
		case gitcmd.RefTypeTag:
			refs.Tags = append(refs.Tags, ref.Name)
		}
	}
	if m.refs != nil {
		m.refs.StoreAllRefs(url, refs)
	}
	return refs, nil
}
