// Package share encodes diff configurations as query strings so a view can be reproduced from a link.
package share
