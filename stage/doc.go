// Package stage prepares destination directories for acquired trees.
//
// Stage decides where a tree goes (the requested path, or a unique dest-N
// sibling when the path is taken), keeps protected files such as
// seed.jsonc out of harm's way while the tree is written, and undoes a
// partial write when population fails.
//
// Protected files are held in the destination's parent directory for the
// duration of the write. If the holding slot is already taken, a
// ConflictResolver chooses between deleting the occupant and backing it
// up as <name>.bak, <name>.bak1, ...
package stage
