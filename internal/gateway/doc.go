// Package gateway assembles the per-process collaborators — serial
// transport, frame codec, protocol engine, device catalog, publisher and
// persistence — into the single cooperative task loop spec.md §5
// describes: each bus's byte stream, the scheduler tick, and periodic
// liveness eviction all drive off frame arrival and a coarse timer.
//
// Gateway owns nothing about wire framing or MQTT rendering itself; it
// only wires those packages together and routes assembled frames to the
// bus they belong to, the way the teacher's bridges/knx Bridge wires a
// knxd connector and an MQTT client together behind one Start/Stop.
package gateway
