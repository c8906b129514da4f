// Package localserver serves the admin API on a Unix domain socket.
//
// The socket is created with mode 0600, so only the server's user (and
// root) can connect. Requests on the socket need no admin token: file
// system permissions are the access control. The socket is removed on
// shutdown, and a stale socket left by a crashed process is replaced on
// start.
package localserver
