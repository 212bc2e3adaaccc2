package delivery

var Consume = consume
