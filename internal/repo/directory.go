package repo

import "context"

// ProfileOwner backs authz.Directory.
func (r *Repo) ProfileOwner(ctx context.Context, profileID uint) (uint, error) {
	profile, err := r.FindProfileByID(ctx, profileID)
	if err != nil {
		return 0, err
	}
	return profile.UserID, nil
}
