package auth

import "github.com/postboard/apiserver/types"

// Both checks assume the resource has already been loaded; callers report a
// missing resource as not found before asking.

// AuthorizePost allows only the post's owner.
func AuthorizePost(post types.Post, user types.User) error {
	if post.OwnerID != user.ID {
		return ErrForbidden
	}
	return nil
}

// AuthorizeProfile allows a user to view only their own profile.
func AuthorizeProfile(target types.User, user types.User) error {
	if target.ID != user.ID {
		return ErrForbidden
	}
	return nil
}
