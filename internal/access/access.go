// Package access decides what an identity may do. Every service operation
// calls Authorize before touching a store, so the role rules live here and
// nowhere else.
package access

import "github.com/dharsanguruparan/TrackFast/internal/model"

// Operation names an action guarded by Authorize.
type Operation string

const (
	ParcelTrack   Operation = "parcel.track"
	ParcelList    Operation = "parcel.list"
	ParcelCreate  Operation = "parcel.create"
	ParcelUpdate  Operation = "parcel.update"
	ParcelEdit    Operation = "parcel.edit"
	ParcelState   Operation = "parcel.state"
	ParcelDelete  Operation = "parcel.delete"
	ParcelArchive Operation = "parcel.archive"

	MessageList Operation = "message.list"
	MessagePost Operation = "message.post"

	AdminCreate        Operation = "admin.create"
	AdminList          Operation = "admin.list"
	AdminDelete        Operation = "admin.delete"
	AdminResetPassword Operation = "admin.reset-password"
)

type level int

const (
	public level = iota
	authenticated
	superadmin
)

var required = map[Operation]level{
	ParcelTrack:        public,
	MessageList:        public,
	MessagePost:        public,
	ParcelList:         authenticated,
	ParcelCreate:       authenticated,
	ParcelUpdate:       authenticated,
	ParcelEdit:         authenticated,
	ParcelState:        authenticated,
	ParcelDelete:       authenticated,
	ParcelArchive:      authenticated,
	AdminCreate:        superadmin,
	AdminList:          superadmin,
	AdminDelete:        superadmin,
	AdminResetPassword: superadmin,
}

// Authorize returns nil when id may perform op on target. target is the id
// of the resource being acted on and may be empty.
func Authorize(op Operation, id *model.Identity, target string) error {
	lvl, ok := required[op]
	if !ok {
		return model.Denied("Unknown operation")
	}
	if lvl == public {
		return nil
	}
	if id == nil || id.AdminID == "" {
		return model.Unauthorized("No token provided")
	}
	if lvl == superadmin && !id.IsSuperadmin() {
		return model.Denied("Superadmin access required")
	}
	if op == AdminDelete && target != "" && target == id.AdminID {
		return model.Validation("You cannot delete your own account")
	}
	return nil
}

// Scope returns the owner filter for listing parcels: superadmins see every
// parcel, other admins only the ones they created.
func Scope(id *model.Identity) string {
	if id.IsSuperadmin() {
		return ""
	}
	return id.AdminID
}
